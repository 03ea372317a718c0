package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type RafflesPubSub struct {
	rdb     *redis.Client
	channel string
	now     func() time.Time
}

func NewRafflesPubSub(rdb *redis.Client) *RafflesPubSub {
	return &RafflesPubSub{
		rdb:     rdb,
		channel: ChannelRafflesChanged(),
		now:     time.Now,
	}
}

type raffleChangedMsg struct {
	Type     string `json:"type"`
	RaffleID int64  `json:"raffle_id"`
	Status   string `json:"status,omitempty"`
	TsUnix   int64  `json:"ts_unix"`
}

func encodeRaffleChanged(raffleID int64, status string, at time.Time) []byte {
	b, _ := json.Marshal(raffleChangedMsg{
		Type:     "raffle_changed",
		RaffleID: raffleID,
		Status:   status,
		TsUnix:   at.Unix(),
	})
	return b
}

func decodeRaffleChanged(payload string) (int64, bool) {
	var msg raffleChangedMsg
	if err := json.Unmarshal([]byte(payload), &msg); err != nil || msg.RaffleID == 0 {
		return 0, false
	}
	return msg.RaffleID, true
}

// PublishRaffleChanged announces that the raffle's read models are stale.
func (p *RafflesPubSub) PublishRaffleChanged(ctx context.Context, raffleID int64, status string) error {
	return p.rdb.Publish(ctx, p.channel, encodeRaffleChanged(raffleID, status, p.now())).Err()
}

// Subscribe calls handler for every change message until ctx is done.
func (p *RafflesPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, raffleID int64)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			if id, ok := decodeRaffleChanged(m.Payload); ok {
				handler(ctx, id)
			}
		}
	}
}

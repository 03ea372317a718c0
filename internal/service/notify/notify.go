package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

type Invalidator interface {
	InvalidateRaffle(ctx context.Context, raffleID int64) error
	InvalidateOrder(ctx context.Context, orderID uuid.UUID) error
}

type Publisher interface {
	PublishRaffleChanged(ctx context.Context, raffleID int64, status string) error
}

// Notifier runs the after-commit side effects of a mutation. Failures are
// logged and never returned: the transaction has already committed.
type Notifier struct {
	cache  Invalidator
	pubsub Publisher
	log    *slog.Logger
}

// New accepts nil cache or pubsub; the matching side effect is skipped.
func New(cache Invalidator, pubsub Publisher, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}

	return &Notifier{cache: cache, pubsub: pubsub, log: log}
}

// RaffleChanged drops the raffle's cached read models and announces the change.
func (n *Notifier) RaffleChanged(ctx context.Context, raffleID int64, status domain.RaffleStatus) {
	if n == nil {
		return
	}

	if n.cache != nil {
		if err := n.cache.InvalidateRaffle(ctx, raffleID); err != nil {
			n.log.Warn("invalidate raffle cache", slog.Int64("raffle_id", raffleID), slog.Any("error", err))
		}
	}

	if n.pubsub != nil {
		if err := n.pubsub.PublishRaffleChanged(ctx, raffleID, string(status)); err != nil {
			n.log.Warn("publish raffle changed", slog.Int64("raffle_id", raffleID), slog.Any("error", err))
		}
	}
}

func (n *Notifier) OrderChanged(ctx context.Context, orderID uuid.UUID) {
	if n == nil || n.cache == nil {
		return
	}

	if err := n.cache.InvalidateOrder(ctx, orderID); err != nil {
		n.log.Warn("invalidate order cache", slog.String("order_id", orderID.String()), slog.Any("error", err))
	}
}

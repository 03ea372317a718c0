package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

type fakeCache struct {
	raffles []int64
	orders  []uuid.UUID
	err     error
}

func (f *fakeCache) InvalidateRaffle(_ context.Context, id int64) error {
	f.raffles = append(f.raffles, id)
	return f.err
}

func (f *fakeCache) InvalidateOrder(_ context.Context, id uuid.UUID) error {
	f.orders = append(f.orders, id)
	return f.err
}

type fakePublisher struct {
	statuses map[int64]string
	err      error
}

func (f *fakePublisher) PublishRaffleChanged(_ context.Context, id int64, status string) error {
	if f.statuses == nil {
		f.statuses = map[int64]string{}
	}
	f.statuses[id] = status
	return f.err
}

func TestRaffleChanged(t *testing.T) {
	t.Parallel()

	cache := &fakeCache{}
	pub := &fakePublisher{}
	n := New(cache, pub, nil)

	n.RaffleChanged(context.Background(), 9, domain.RaffleCompleted)

	require.Equal(t, []int64{9}, cache.raffles)
	require.Equal(t, "COMPLETED", pub.statuses[9])
}

func TestFailuresAreLoggedOnly(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	boom := errors.New("boom")
	cache := &fakeCache{err: boom}
	pub := &fakePublisher{err: boom}
	n := New(cache, pub, log)

	id := uuid.New()
	n.RaffleChanged(context.Background(), 3, domain.RaffleActive)
	n.OrderChanged(context.Background(), id)

	require.Equal(t, []uuid.UUID{id}, cache.orders)
	require.Contains(t, buf.String(), "invalidate raffle cache")
	require.Contains(t, buf.String(), "publish raffle changed")
	require.Contains(t, buf.String(), "order_id="+id.String())
}

func TestNilDependencies(t *testing.T) {
	t.Parallel()

	var n *Notifier
	require.NotPanics(t, func() { n.RaffleChanged(context.Background(), 1, domain.RaffleActive) })

	n = New(nil, nil, nil)
	require.NotPanics(t, func() {
		n.RaffleChanged(context.Background(), 1, domain.RaffleActive)
		n.OrderChanged(context.Background(), uuid.New())
	})
}

package orders

import (
	"context"

	"github.com/kirinyoku/raffle-go/internal/domain"
	"github.com/kirinyoku/raffle-go/internal/lifecycle"
	postgresrepo "github.com/kirinyoku/raffle-go/internal/repository/postgres"
)

// transitionWriter is the storage an order transition is written through.
type transitionWriter interface {
	SaveTickets(ctx context.Context, tickets []*domain.Ticket) error
	UpdateOrder(ctx context.Context, o *domain.Order) error
	UpdateStatistics(ctx context.Context, s *domain.RaffleStatistics) error
	UpdateRaffle(ctx context.Context, r *domain.Raffle) error
}

type txTransitionWriter struct {
	tickets *postgresrepo.TicketRepo
	orders  *postgresrepo.OrderRepo
	stats   *postgresrepo.StatsRepo
	raffles *postgresrepo.RaffleRepo
}

func newTxTransitionWriter(store *postgresrepo.Store, tx postgresrepo.DB) txTransitionWriter {
	return txTransitionWriter{
		tickets: store.Tickets().With(tx),
		orders:  store.Orders().With(tx),
		stats:   store.Statistics().With(tx),
		raffles: store.Raffles().With(tx),
	}
}

func (w txTransitionWriter) SaveTickets(ctx context.Context, tickets []*domain.Ticket) error {
	return w.tickets.Save(ctx, tickets)
}

func (w txTransitionWriter) UpdateOrder(ctx context.Context, o *domain.Order) error {
	return w.orders.Update(ctx, o)
}

func (w txTransitionWriter) UpdateStatistics(ctx context.Context, s *domain.RaffleStatistics) error {
	return w.stats.Update(ctx, s)
}

func (w txTransitionWriter) UpdateRaffle(ctx context.Context, r *domain.Raffle) error {
	return w.raffles.Update(ctx, r)
}

// writeTransition persists a transition. The raffle row is written only when
// the transition completed or reactivated it.
func writeTransition(
	ctx context.Context,
	w transitionWriter,
	agg lifecycle.OrderAggregate,
	res lifecycle.TransitionResult,
) error {
	if err := w.SaveTickets(ctx, res.Tickets); err != nil {
		return err
	}

	if err := w.UpdateOrder(ctx, agg.Order); err != nil {
		return err
	}

	if err := w.UpdateStatistics(ctx, agg.Stats); err != nil {
		return err
	}

	if !res.RaffleChanged() {
		return nil
	}

	return w.UpdateRaffle(ctx, agg.Raffle)
}

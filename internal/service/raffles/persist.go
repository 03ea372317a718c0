package raffles

import (
	"context"
	"fmt"

	"github.com/kirinyoku/raffle-go/internal/domain"
	"github.com/kirinyoku/raffle-go/internal/lifecycle"
	postgresrepo "github.com/kirinyoku/raffle-go/internal/repository/postgres"
)

// editWriter is the storage an applied edit is written through.
type editWriter interface {
	MintTickets(ctx context.Context, raffleID int64, numbers []string) error
	RemoveTickets(ctx context.Context, raffleID int64, n int) error
	UpdateRaffle(ctx context.Context, r *domain.Raffle) error
	UpdateStatistics(ctx context.Context, s *domain.RaffleStatistics) error
}

type txEditWriter struct {
	tickets *postgresrepo.TicketRepo
	raffles *postgresrepo.RaffleRepo
	stats   *postgresrepo.StatsRepo
}

func newTxEditWriter(store *postgresrepo.Store, tx postgresrepo.DB) txEditWriter {
	return txEditWriter{
		tickets: store.Tickets().With(tx),
		raffles: store.Raffles().With(tx),
		stats:   store.Statistics().With(tx),
	}
}

func (w txEditWriter) MintTickets(ctx context.Context, raffleID int64, numbers []string) error {
	return w.tickets.BatchCreate(ctx, raffleID, numbers)
}

func (w txEditWriter) RemoveTickets(ctx context.Context, raffleID int64, n int) error {
	return w.tickets.DeleteRemovable(ctx, raffleID, n)
}

func (w txEditWriter) UpdateRaffle(ctx context.Context, r *domain.Raffle) error {
	return w.raffles.Update(ctx, r)
}

func (w txEditWriter) UpdateStatistics(ctx context.Context, s *domain.RaffleStatistics) error {
	return w.stats.Update(ctx, s)
}

// writeEdit persists an applied edit. A deferred failure in plan does not
// stop the write; the caller reports it once the transaction has committed.
func writeEdit(
	ctx context.Context,
	w editWriter,
	r *domain.Raffle,
	stats *domain.RaffleStatistics,
	plan lifecycle.EditPlan,
) error {
	if len(plan.MintNumbers) > 0 {
		if err := w.MintTickets(ctx, r.ID, plan.MintNumbers); err != nil {
			return err
		}
	}

	if plan.RemoveCount > 0 {
		if err := w.RemoveTickets(ctx, r.ID, plan.RemoveCount); err != nil {
			return err
		}
	}

	if err := w.UpdateRaffle(ctx, r); err != nil {
		return err
	}

	return w.UpdateStatistics(ctx, stats)
}

// editOutcome shapes Edit's return. A committed edit with a deferred
// failure returns the persisted raffle together with that failure.
func editOutcome(op string, r *domain.Raffle, txErr, deferred error) (*domain.Raffle, error) {
	if txErr != nil {
		return nil, fmt.Errorf("%s: %w", op, txErr)
	}

	if deferred != nil {
		return r, fmt.Errorf("%s: %w", op, deferred)
	}

	return r, nil
}

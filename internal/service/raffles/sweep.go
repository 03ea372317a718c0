package raffles

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/raffle-go/internal/lifecycle"
	postgresrepo "github.com/kirinyoku/raffle-go/internal/repository/postgres"
	"github.com/kirinyoku/raffle-go/internal/uow"
)

// CompleteEnded completes ACTIVE and PAUSED raffles whose end date has
// passed, one transaction per raffle. A failing raffle is logged and skipped.
//
// Returns:
//   - int: number of raffles completed.
//   - error: only if the candidates could not be listed.
func (s *Service) CompleteEnded(ctx context.Context) (int, error) {
	const op = "service.raffles.CompleteEnded"

	now := s.now()

	ids, err := s.store.Raffles().ListEndedIDs(ctx, now, s.cfg.SweepBatch)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	completed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return completed, ctx.Err()
		}

		done, err := s.completeEnded(ctx, id)
		if err != nil {
			s.log.Error("complete ended raffle", slog.Int64("raffle_id", id), slog.Any("error", err))
			continue
		}

		if done {
			completed++
		}
	}

	return completed, nil
}

func (s *Service) completeEnded(ctx context.Context, id int64) (bool, error) {
	const op = "service.raffles.completeEnded"

	now := s.now()
	done := false

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		r, err := s.store.Raffles().With(tx).GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if !lifecycle.CompleteEnded(r, now) {
			return nil
		}

		if err := s.store.Raffles().With(tx).Update(ctx, r); err != nil {
			return err
		}

		done = true

		after(func(ctx context.Context) {
			s.notify.RaffleChanged(ctx, id, r.Status)
		})

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return done, nil
}

package raffles

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/raffle-go/internal/domain"
	"github.com/kirinyoku/raffle-go/internal/lifecycle"
	postgresrepo "github.com/kirinyoku/raffle-go/internal/repository/postgres"
	"github.com/kirinyoku/raffle-go/internal/service/notify"
	"github.com/kirinyoku/raffle-go/internal/uow"
)

type Config struct {
	// SweepBatch caps how many ended raffles one sweep completes.
	SweepBatch int
	Now        func() time.Time
}

type Service struct {
	store  *postgresrepo.Store
	notify *notify.Notifier
	uow    *uow.UoW
	log    *slog.Logger
	cfg    Config
}

func New(store *postgresrepo.Store, n *notify.Notifier, log *slog.Logger, cfg Config) *Service {
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = 100
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if log == nil {
		log = slog.Default()
	}

	return &Service{
		store:  store,
		notify: n,
		uow:    uow.NewUoW(store),
		log:    log,
		cfg:    cfg,
	}
}

func (s *Service) now() time.Time {
	return s.cfg.Now().UTC()
}

// Create persists a PENDING raffle together with its tickets and statistics.
//
// Parameters:
//   - ctx: request-scoped context.
//   - d: the raffle attributes.
//
// Returns:
//   - *domain.Raffle: the created raffle with its ID.
//   - error: lifecycle.ValidationError if d is invalid.
func (s *Service) Create(ctx context.Context, d lifecycle.RaffleDraft) (*domain.Raffle, error) {
	const op = "service.raffles.Create"

	now := s.now()

	raffle, numbers, err := lifecycle.NewRaffle(d, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		id, err := s.store.Raffles().With(tx).Create(ctx, &raffle)
		if err != nil {
			return err
		}
		raffle.ID = id

		stats := lifecycle.NewStatistics(id, raffle.TotalTickets)
		if err := s.store.Statistics().With(tx).Create(ctx, &stats); err != nil {
			return err
		}

		if err := s.store.Tickets().With(tx).BatchCreate(ctx, id, numbers); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.notify.RaffleChanged(ctx, id, raffle.Status)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &raffle, nil
}

// Edit applies a partial update. When only the END_DATE_REACHED re-validation
// fails, the edit is still committed and the validation error is returned
// together with the updated raffle.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: raffle ID.
//   - edit: fields to change; nil fields are kept.
//
// Returns:
//   - *domain.Raffle: the raffle after the edit.
//   - error: lifecycle.ValidationError, lifecycle.ForbiddenError or
//     lifecycle.NotFoundError.
func (s *Service) Edit(ctx context.Context, id int64, edit lifecycle.RaffleEdit) (*domain.Raffle, error) {
	const op = "service.raffles.Edit"

	now := s.now()

	var (
		raffle   *domain.Raffle
		deferred error
	)

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		r, err := s.store.Raffles().With(tx).GetForUpdate(ctx, id)
		if err != nil {
			return notFound("raffle", err)
		}

		stats, err := s.store.Statistics().With(tx).GetForUpdate(ctx, id)
		if err != nil {
			return notFound("raffle statistics", err)
		}

		var facts lifecycle.EditFacts
		if edit.TotalTickets != nil {
			tickets := s.store.Tickets().With(tx)

			if facts.MaxTicketNumber, err = tickets.MaxNumber(ctx, id); err != nil {
				return err
			}

			if facts.RemovableTickets, err = tickets.CountRemovable(ctx, id); err != nil {
				return err
			}
		}

		plan, err := lifecycle.ApplyRaffleEdit(r, stats, edit, facts, now)
		if err != nil {
			return err
		}

		if err := writeEdit(ctx, newTxEditWriter(s.store, tx), r, stats, plan); err != nil {
			return err
		}

		raffle = r
		deferred = plan.Deferred

		if plan.Reactivated {
			s.log.Info("raffle reactivated by edit", slog.Int64("raffle_id", id))
		}

		after(func(ctx context.Context) {
			s.notify.RaffleChanged(ctx, id, r.Status)
		})

		return nil
	})

	return editOutcome(op, raffle, err, deferred)
}

// UpdateStatus is the explicit raffle transition. Every failed check is
// returned.
func (s *Service) UpdateStatus(ctx context.Context, id int64, to domain.RaffleStatus) (*domain.Raffle, error) {
	const op = "service.raffles.UpdateStatus"

	now := s.now()

	var raffle *domain.Raffle

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		r, err := s.store.Raffles().With(tx).GetForUpdate(ctx, id)
		if err != nil {
			return notFound("raffle", err)
		}

		stats, err := s.store.Statistics().With(tx).GetForUpdate(ctx, id)
		if err != nil {
			return notFound("raffle statistics", err)
		}

		if err := lifecycle.ChangeRaffleStatus(r, *stats, to, now); err != nil {
			return err
		}

		if err := s.store.Raffles().With(tx).Update(ctx, r); err != nil {
			return err
		}

		raffle = r

		after(func(ctx context.Context) {
			s.notify.RaffleChanged(ctx, id, r.Status)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return raffle, nil
}

// RecordWinner stores the drawn ticket of a COMPLETED raffle.
func (s *Service) RecordWinner(ctx context.Context, id, ticketID int64) (*domain.Raffle, error) {
	const op = "service.raffles.RecordWinner"

	now := s.now()

	var raffle *domain.Raffle

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		r, err := s.store.Raffles().With(tx).GetForUpdate(ctx, id)
		if err != nil {
			return notFound("raffle", err)
		}

		t, err := s.store.Tickets().With(tx).GetByID(ctx, ticketID)
		if err != nil {
			return notFound("ticket", err)
		}

		if err := lifecycle.RecordWinner(r, t, now); err != nil {
			return err
		}

		if err := s.store.Raffles().With(tx).Update(ctx, r); err != nil {
			return err
		}

		raffle = r

		after(func(ctx context.Context) {
			s.notify.RaffleChanged(ctx, id, r.Status)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return raffle, nil
}

// Delete removes a PENDING raffle with its tickets and statistics.
func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "service.raffles.Delete"

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		r, err := s.store.Raffles().With(tx).GetForUpdate(ctx, id)
		if err != nil {
			return notFound("raffle", err)
		}

		if err := lifecycle.CanDelete(r); err != nil {
			return err
		}

		if err := s.store.Raffles().With(tx).Delete(ctx, id); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.notify.RaffleChanged(ctx, id, r.Status)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

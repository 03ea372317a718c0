package carts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/raffle-go/internal/domain"
	"github.com/kirinyoku/raffle-go/internal/lifecycle"
	"github.com/kirinyoku/raffle-go/internal/repository"
	postgresrepo "github.com/kirinyoku/raffle-go/internal/repository/postgres"
	"github.com/kirinyoku/raffle-go/internal/service/notify"
	"github.com/kirinyoku/raffle-go/internal/uow"
)

type Config struct {
	TTL        time.Duration
	SweepBatch int
	Now        func() time.Time
	NewID      func() uuid.UUID
}

type Service struct {
	store  *postgresrepo.Store
	notify *notify.Notifier
	uow    *uow.UoW
	log    *slog.Logger
	cfg    Config
}

func New(store *postgresrepo.Store, n *notify.Notifier, log *slog.Logger, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}

	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = 100
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.NewID == nil {
		cfg.NewID = uuid.New
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

// Open creates an empty cart for an ACTIVE raffle.
func (s *Service) Open(ctx context.Context, raffleID int64) (*domain.Cart, error) {
	const op = "service.carts.Open"

	now := s.now()

	var cart domain.Cart

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		r, err := s.store.Raffles().With(tx).GetForUpdate(ctx, raffleID)
		if err != nil {
			return notFound("raffle", err)
		}

		cart, err = lifecycle.OpenCart(r, s.cfg.NewID(), s.cfg.TTL, now)
		if err != nil {
			return err
		}

		return s.store.Carts().With(tx).Create(ctx, &cart)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cart, nil
}

// AddTickets reserves AVAILABLE tickets into the cart.
//
// Parameters:
//   - ctx: request-scoped context.
//   - cartID: an open cart.
//   - ticketIDs: tickets of the cart's raffle; duplicates are ignored.
//
// Returns:
//   - []*domain.Ticket: the reserved tickets.
//   - error: lifecycle.TicketsUnavailableError if any ticket is not AVAILABLE,
//     lifecycle.NotFoundError for unknown carts or tickets.
func (s *Service) AddTickets(ctx context.Context, cartID uuid.UUID, ticketIDs []int64) ([]*domain.Ticket, error) {
	const op = "service.carts.AddTickets"

	now := s.now()
	ids := uniqueIDs(ticketIDs)

	var reserved []*domain.Ticket

	err := s.withCart(ctx, cartID, func(ctx context.Context, tx postgresrepo.DB, c *cartScope) error {
		tickets, err := s.store.Tickets().With(tx).GetByIDsForUpdate(ctx, c.raffle.ID, ids)
		if err != nil {
			return err
		}

		if missing := lifecycle.MissingIDs(ids, tickets); len(missing) > 0 {
			return lifecycle.NotFoundError{Resource: "ticket", IDs: missing}
		}

		if err := lifecycle.AddToCart(c.cart, c.raffle, tickets, c.stats, now); err != nil {
			return err
		}

		if err := s.store.Tickets().With(tx).Reserve(ctx, c.raffle.ID, c.cart.ID, ids); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return lifecycle.TicketsUnavailableError{TicketIDs: ids}
			}
			return err
		}

		reserved = tickets
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return reserved, nil
}

// RemoveTickets releases tickets the cart holds back to AVAILABLE.
func (s *Service) RemoveTickets(ctx context.Context, cartID uuid.UUID, ticketIDs []int64) error {
	const op = "service.carts.RemoveTickets"

	now := s.now()
	ids := uniqueIDs(ticketIDs)
	if len(ids) == 0 {
		return fmt.Errorf("%s: %w", op, lifecycle.ValidationError{Field: "ticket_ids", Reason: "at least one ticket is required"})
	}

	err := s.withCart(ctx, cartID, func(ctx context.Context, tx postgresrepo.DB, c *cartScope) error {
		tickets, err := s.store.Tickets().With(tx).GetByIDsForUpdate(ctx, c.raffle.ID, ids)
		if err != nil {
			return err
		}

		if missing := lifecycle.MissingIDs(ids, tickets); len(missing) > 0 {
			return lifecycle.NotFoundError{Resource: "ticket", IDs: missing}
		}

		if err := lifecycle.RemoveFromCart(c.cart, tickets, c.stats, now); err != nil {
			return err
		}

		return s.store.Tickets().With(tx).Save(ctx, tickets)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

type cartScope struct {
	raffle *domain.Raffle
	stats  *domain.RaffleStatistics
	cart   *domain.Cart
}

// withCart locks raffle, statistics and cart in that order, runs fn and
// writes the statistics back.
func (s *Service) withCart(
	ctx context.Context,
	cartID uuid.UUID,
	fn func(ctx context.Context, tx postgresrepo.DB, c *cartScope) error,
) error {
	return s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		raffleID, err := s.store.Carts().With(tx).RaffleIDOf(ctx, cartID)
		if err != nil {
			return notFound("cart", err)
		}

		r, err := s.store.Raffles().With(tx).GetForUpdate(ctx, raffleID)
		if err != nil {
			return notFound("raffle", err)
		}

		stats, err := s.store.Statistics().With(tx).GetForUpdate(ctx, raffleID)
		if err != nil {
			return notFound("raffle statistics", err)
		}

		cart, err := s.store.Carts().With(tx).GetForUpdate(ctx, cartID)
		if err != nil {
			return notFound("cart", err)
		}

		scope := &cartScope{raffle: r, stats: stats, cart: cart}
		if err := fn(ctx, tx, scope); err != nil {
			return err
		}

		if err := s.store.Statistics().With(tx).Update(ctx, stats); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.notify.RaffleChanged(ctx, raffleID, r.Status)
		})

		return nil
	})
}

func uniqueIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

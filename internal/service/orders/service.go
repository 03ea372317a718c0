package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/raffle-go/internal/domain"
	"github.com/kirinyoku/raffle-go/internal/lifecycle"
	postgresrepo "github.com/kirinyoku/raffle-go/internal/repository/postgres"
	"github.com/kirinyoku/raffle-go/internal/service/notify"
	"github.com/kirinyoku/raffle-go/internal/uow"
)

type Config struct {
	Now          func() time.Time
	NewID        func() uuid.UUID
	NewReference func() string
}

type Service struct {
	store  *postgresrepo.Store
	notify *notify.Notifier
	uow    *uow.UoW
	log    *slog.Logger
	cfg    Config
}

func New(store *postgresrepo.Store, n *notify.Notifier, log *slog.Logger, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.NewID == nil {
		cfg.NewID = uuid.New
	}

	if cfg.NewReference == nil {
		cfg.NewReference = NewReference
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

type CreateInput struct {
	CartID    uuid.UUID
	TicketIDs []int64
	Customer  domain.Customer
	Method    domain.PaymentMethod
}

// Create converts a cart into a PENDING order.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: the cart, the exact set of its tickets, the buyer and the payment method.
//
// Returns:
//   - *domain.Order: the placed order.
//   - error: lifecycle.NotFoundError if the cart is unknown,
//     lifecycle.ValidationError if the cart or the selection is not acceptable,
//     lifecycle.TicketsUnavailableError if a cart ticket changed hands.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	const op = "service.orders.Create"

	now := s.now()

	customer := in.Customer.Normalize()
	if err := validateCustomer(customer); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var order domain.Order

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		raffleID, err := s.store.Carts().With(tx).RaffleIDOf(ctx, in.CartID)
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

		cart, err := s.store.Carts().With(tx).GetForUpdate(ctx, in.CartID)
		if err != nil {
			return notFound("cart", err)
		}

		cartTickets, err := s.store.Tickets().With(tx).ListByCartForUpdate(ctx, cart.ID)
		if err != nil {
			return err
		}

		buyer, err := s.store.Customers().With(tx).Upsert(ctx, customer)
		if err != nil {
			return err
		}

		returning, err := s.store.Orders().With(tx).HasOrderInRaffle(ctx, raffleID, buyer.ID)
		if err != nil {
			return err
		}

		order, err = lifecycle.PlaceOrder(lifecycle.Placement{
			OrderID:        s.cfg.NewID(),
			Reference:      s.cfg.NewReference(),
			Raffle:         r,
			Cart:           cart,
			CartTickets:    cartTickets,
			TicketIDs:      in.TicketIDs,
			Customer:       buyer,
			Method:         in.Method,
			NewParticipant: !returning,
		}, stats, now)
		if err != nil {
			return err
		}

		if err := s.store.Orders().With(tx).Create(ctx, &order); err != nil {
			return err
		}

		if err := s.store.Tickets().With(tx).Save(ctx, cartTickets); err != nil {
			return err
		}

		if err := s.store.Carts().With(tx).UpdateStatus(ctx, cart.ID, cart.Status); err != nil {
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
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &order, nil
}

// UpdateStatus runs one order transition and its cascade over tickets,
// statistics and the raffle in a single transaction.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: order ID.
//   - to: the target status.
//
// Returns:
//   - *domain.Order: the order after the transition.
//   - error: lifecycle.UnsupportedTransitionError, lifecycle.RaffleStatusMismatchError
//     or lifecycle.NotFoundError. Nothing is persisted on error.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	const op = "service.orders.UpdateStatus"

	now := s.now()

	var order *domain.Order

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		raffleID, err := s.store.Orders().With(tx).RaffleIDOf(ctx, id)
		if err != nil {
			return notFound("order", err)
		}

		r, err := s.store.Raffles().With(tx).GetForUpdate(ctx, raffleID)
		if err != nil {
			return notFound("raffle", err)
		}

		stats, err := s.store.Statistics().With(tx).GetForUpdate(ctx, raffleID)
		if err != nil {
			return notFound("raffle statistics", err)
		}

		o, err := s.store.Orders().With(tx).GetForUpdate(ctx, id)
		if err != nil {
			return notFound("order", err)
		}

		tickets, err := s.store.Tickets().With(tx).GetByIDsForUpdate(ctx, raffleID, o.TicketIDs())
		if err != nil {
			return err
		}

		agg := lifecycle.OrderAggregate{
			Raffle:  r,
			Stats:   stats,
			Order:   o,
			Tickets: tickets,
		}

		res, err := lifecycle.TransitionOrder(agg, to, now)
		if err != nil {
			return err
		}

		if err := writeTransition(ctx, newTxTransitionWriter(s.store, tx), agg, res); err != nil {
			return err
		}

		if res.RaffleChanged() {
			s.log.Info("raffle status changed by order",
				slog.Int64("raffle_id", raffleID),
				slog.String("order_id", id.String()),
				slog.String("status", string(r.Status)),
			)
		}

		order = o

		after(func(ctx context.Context) {
			s.notify.RaffleChanged(ctx, raffleID, r.Status)
			s.notify.OrderChanged(ctx, id)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return order, nil
}

// SetComment adds or replaces the order's comment.
func (s *Service) SetComment(ctx context.Context, id uuid.UUID, text string) (*domain.Order, error) {
	const op = "service.orders.SetComment"

	now := s.now()

	order, err := s.editComment(ctx, id, func(o *domain.Order) (bool, error) {
		if err := lifecycle.SetComment(o, text, now); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return order, nil
}

// RemoveComment clears the comment; an order without one is left as is.
func (s *Service) RemoveComment(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "service.orders.RemoveComment"

	now := s.now()

	order, err := s.editComment(ctx, id, func(o *domain.Order) (bool, error) {
		return lifecycle.RemoveComment(o, now), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return order, nil
}

// editComment locks only the order row; comments never touch the raffle.
func (s *Service) editComment(
	ctx context.Context,
	id uuid.UUID,
	apply func(o *domain.Order) (bool, error),
) (*domain.Order, error) {
	var order *domain.Order

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		o, err := s.store.Orders().With(tx).GetForUpdate(ctx, id)
		if err != nil {
			return notFound("order", err)
		}

		changed, err := apply(o)
		if err != nil {
			return err
		}

		order = o
		if !changed {
			return nil
		}

		if err := s.store.Orders().With(tx).Update(ctx, o); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.notify.OrderChanged(ctx, id)
		})

		return nil
	})

	return order, err
}

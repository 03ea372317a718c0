package httpgin

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/raffle-go/internal/domain"
	"github.com/kirinyoku/raffle-go/internal/lifecycle"
	redisrepo "github.com/kirinyoku/raffle-go/internal/repository/redis"
	"github.com/kirinyoku/raffle-go/internal/service/orders"
)

type RaffleService interface {
	Create(ctx context.Context, d lifecycle.RaffleDraft) (*domain.Raffle, error)
	Edit(ctx context.Context, id int64, edit lifecycle.RaffleEdit) (*domain.Raffle, error)
	UpdateStatus(ctx context.Context, id int64, to domain.RaffleStatus) (*domain.Raffle, error)
	RecordWinner(ctx context.Context, id, ticketID int64) (*domain.Raffle, error)
	Delete(ctx context.Context, id int64) error
}

type CartService interface {
	Open(ctx context.Context, raffleID int64) (*domain.Cart, error)
	AddTickets(ctx context.Context, cartID uuid.UUID, ticketIDs []int64) ([]*domain.Ticket, error)
	RemoveTickets(ctx context.Context, cartID uuid.UUID, ticketIDs []int64) error
}

type OrderService interface {
	Create(ctx context.Context, in orders.CreateInput) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus) (*domain.Order, error)
	SetComment(ctx context.Context, id uuid.UUID, text string) (*domain.Order, error)
	RemoveComment(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

type QueryService interface {
	RaffleSummary(ctx context.Context, id int64) (*domain.RaffleSummary, error)
	Statistics(ctx context.Context, id int64) (*domain.RaffleStatistics, error)
	Order(ctx context.Context, id uuid.UUID) (*domain.OrderWithCustomer, error)
}

type IdempotencyStore interface {
	GetResult(ctx context.Context, key string) (string, bool, error)
	AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	SaveResult(ctx context.Context, key string, jsonPayload string) error
	Release(ctx context.Context, key string) error
}

type RateLimiter interface {
	Allow(ctx context.Context, client string) (redisrepo.Decision, error)
}

// Deps is what the router serves. Idempotency and Limiter are optional.
type Deps struct {
	Raffles     RaffleService
	Carts       CartService
	Orders      OrderService
	Query       QueryService
	Idempotency IdempotencyStore
	Limiter     RateLimiter
}

package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kirinyoku/raffle-go/internal/domain"
	postgresrepo "github.com/kirinyoku/raffle-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/raffle-go/internal/repository/redis"
)

type Config struct {
	RaffleSummaryTTL time.Duration
	StatisticsTTL    time.Duration
	OrderTTL         time.Duration
}

type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	log   *slog.Logger
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, log *slog.Logger, cfg Config) *Service {
	if cfg.RaffleSummaryTTL <= 0 {
		cfg.RaffleSummaryTTL = 60 * time.Second
	}

	if cfg.StatisticsTTL <= 0 {
		cfg.StatisticsTTL = 15 * time.Second
	}

	if cfg.OrderTTL <= 0 {
		cfg.OrderTTL = 30 * time.Second
	}

	if log == nil {
		log = slog.Default()
	}

	return &Service{
		store: store,
		cache: cache,
		log:   log,
		cfg:   cfg,
	}
}

var snapshotTx = &pgx.TxOptions{
	IsoLevel:   pgx.RepeatableRead,
	AccessMode: pgx.ReadOnly,
}

// read runs fn against one consistent snapshot.
func (s *Service) read(ctx context.Context, fn func(ctx context.Context, q *postgresrepo.QueryRepo) error) error {
	return s.store.RunTx(ctx, snapshotTx, func(ctx context.Context, tx postgresrepo.DB) error {
		return fn(ctx, s.store.Query().With(tx))
	})
}

// RaffleSummary retrieves the raffle together with its statistics, utilizing
// the cache.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ID of the raffle.
//
// Returns:
//   - *domain.RaffleSummary: the raffle and its statistics.
//   - error: lifecycle.NotFoundError if the raffle does not exist.
func (s *Service) RaffleSummary(ctx context.Context, id int64) (*domain.RaffleSummary, error) {
	const op = "service.query.RaffleSummary"

	summary, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyRaffleSummary(id),
		s.cfg.RaffleSummaryTTL,
		func(ctx context.Context) (domain.RaffleSummary, error) {
			var out domain.RaffleSummary
			err := s.read(ctx, func(ctx context.Context, q *postgresrepo.QueryRepo) error {
				sum, err := q.RaffleSummary(ctx, id)
				if err != nil {
					return notFound("raffle", err)
				}
				out = *sum
				return nil
			})
			return out, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &summary, nil
}

func (s *Service) Statistics(ctx context.Context, id int64) (*domain.RaffleStatistics, error) {
	const op = "service.query.Statistics"

	stats, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyRaffleStatistics(id),
		s.cfg.StatisticsTTL,
		func(ctx context.Context) (domain.RaffleStatistics, error) {
			st, err := s.store.Query().Statistics(ctx, id)
			if err != nil {
				return domain.RaffleStatistics{}, notFound("raffle", err)
			}
			return *st, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &stats, nil
}

// Order returns the order with its items, payment and customer.
func (s *Service) Order(ctx context.Context, id uuid.UUID) (*domain.OrderWithCustomer, error) {
	const op = "service.query.Order"

	order, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyOrder(id),
		s.cfg.OrderTTL,
		func(ctx context.Context) (domain.OrderWithCustomer, error) {
			var out domain.OrderWithCustomer
			err := s.read(ctx, func(ctx context.Context, q *postgresrepo.QueryRepo) error {
				o, err := q.OrderWithCustomer(ctx, id)
				if err != nil {
					return notFound("order", err)
				}
				out = *o
				return nil
			})
			return out, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &order, nil
}

// WarmRaffle reloads the raffle's read models after a change notification.
func (s *Service) WarmRaffle(ctx context.Context, id int64) {
	if _, err := s.RaffleSummary(ctx, id); err != nil {
		s.log.Debug("warm raffle summary", slog.Int64("raffle_id", id), slog.Any("error", err))
	}

	if _, err := s.Statistics(ctx, id); err != nil {
		s.log.Debug("warm raffle statistics", slog.Int64("raffle_id", id), slog.Any("error", err))
	}
}

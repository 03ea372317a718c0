package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/raffle-go/internal/config"
	"github.com/kirinyoku/raffle-go/internal/postgres"
	"github.com/kirinyoku/raffle-go/internal/redis"
	postgresrepo "github.com/kirinyoku/raffle-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/raffle-go/internal/repository/redis"
	"github.com/kirinyoku/raffle-go/internal/service"
	"github.com/kirinyoku/raffle-go/internal/service/carts"
	httpgin "github.com/kirinyoku/raffle-go/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	rdb        *goredis.Client
	pubsub     *redisrepo.RafflesPubSub
	services   *service.Services
	httpServer *http.Server
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	dsn := postgres.DSN(
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pool, err := postgres.New(ctx, postgres.Config{DSN: dsn, MaxConns: cfg.Postgres.MaxConns})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	store := postgresrepo.NewStore(pool)
	if cfg.Postgres.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			_ = rdb.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Info("schema applied")
	}

	cache := redisrepo.NewCache(rdb)
	pubsub := redisrepo.NewRafflesPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "carts", cfg.App.RateLimit, cfg.App.RateWindow)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, cfg.App.IdempotencyTTL)

	services := service.NewServices(store, cache, pubsub, logger, service.Config{
		Carts: carts.Config{TTL: cfg.App.CartTTL},
	})

	router := httpgin.NewRouter(httpgin.Deps{
		Raffles:     services.Raffles,
		Carts:       services.Carts,
		Orders:      services.Orders,
		Query:       services.Query,
		Idempotency: idempotencyStore,
		Limiter:     limiter,
	}, logger)

	return &App{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		rdb:      rdb,
		pubsub:   pubsub,
		services: services,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Sweeper: ended raffles and expired carts
	g.Go(func() error {
		return a.sweep(gCtx)
	})

	// Cache warmer fed by change notifications
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, a.services.Query.WarmRaffle)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("raffle change subscription stopped", slog.Any("error", err))
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) sweep(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.App.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.sweepOnce(ctx)
		}
	}
}

func (a *App) sweepOnce(ctx context.Context) {
	if n, err := a.services.Raffles.CompleteEnded(ctx); err != nil {
		a.logger.Error("sweep ended raffles", slog.Any("error", err))
	} else if n > 0 {
		a.logger.Info("completed ended raffles", slog.Int("count", n))
	}

	if n, err := a.services.Carts.ExpireCarts(ctx); err != nil {
		a.logger.Error("sweep expired carts", slog.Any("error", err))
	} else if n > 0 {
		a.logger.Info("expired carts", slog.Int("count", n))
	}
}

func (a *App) close() {
	if err := a.rdb.Close(); err != nil {
		a.logger.Warn("close redis", slog.Any("error", err))
	}
	a.pool.Close()
}

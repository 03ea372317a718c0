package service

import (
	"log/slog"

	postgres "github.com/kirinyoku/raffle-go/internal/repository/postgres"
	redis "github.com/kirinyoku/raffle-go/internal/repository/redis"
	"github.com/kirinyoku/raffle-go/internal/service/carts"
	"github.com/kirinyoku/raffle-go/internal/service/notify"
	"github.com/kirinyoku/raffle-go/internal/service/orders"
	"github.com/kirinyoku/raffle-go/internal/service/query"
	"github.com/kirinyoku/raffle-go/internal/service/raffles"
)

type Services struct {
	Raffles *raffles.Service
	Carts   *carts.Service
	Orders  *orders.Service
	Query   *query.Service
}

type Config struct {
	Raffles raffles.Config
	Carts   carts.Config
	Orders  orders.Config
	Query   query.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redis.RafflesPubSub,
	log *slog.Logger,
	cfg Config,
) *Services {
	n := notify.New(cache, pubsub, log)

	return &Services{
		Raffles: raffles.New(store, n, log, cfg.Raffles),
		Carts:   carts.New(store, n, log, cfg.Carts),
		Orders:  orders.New(store, n, log, cfg.Orders),
		Query:   query.New(store, cache, log, cfg.Query),
	}
}

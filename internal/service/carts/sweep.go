package carts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kirinyoku/raffle-go/internal/lifecycle"
	postgresrepo "github.com/kirinyoku/raffle-go/internal/repository/postgres"
)

// ExpireCarts marks ACTIVE carts past their deadline EXPIRED and releases
// their tickets, one transaction per cart.
func (s *Service) ExpireCarts(ctx context.Context) (int, error) {
	const op = "service.carts.ExpireCarts"

	ids, err := s.store.Carts().ListExpiredIDs(ctx, s.now(), s.cfg.SweepBatch)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	expired := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}

		done, err := s.expire(ctx, id)
		if err != nil {
			s.log.Error("expire cart", slog.String("cart_id", id.String()), slog.Any("error", err))
			continue
		}

		if done {
			expired++
		}
	}

	return expired, nil
}

func (s *Service) expire(ctx context.Context, cartID uuid.UUID) (bool, error) {
	const op = "service.carts.expire"

	now := s.now()
	done := false

	err := s.withCart(ctx, cartID, func(ctx context.Context, tx postgresrepo.DB, c *cartScope) error {
		tickets, err := s.store.Tickets().With(tx).ListByCartForUpdate(ctx, cartID)
		if err != nil {
			return err
		}

		if !lifecycle.ExpireCart(c.cart, tickets, c.stats, now) {
			return nil
		}

		if err := s.store.Tickets().With(tx).Save(ctx, tickets); err != nil {
			return err
		}

		done = true
		return s.store.Carts().With(tx).UpdateStatus(ctx, cartID, c.cart.Status)
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return done, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/raffle-go/internal/domain"
	"github.com/kirinyoku/raffle-go/internal/repository"
)

type CartRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CartRepo) With(db DB) *CartRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CartRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *CartRepo) Create(ctx context.Context, c *domain.Cart) error {
	const op = "postgres.CartRepo.Create"

	if _, err := r.handle().Exec(ctx,
		`INSERT INTO carts(id, raffle_id, status, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.RaffleID, c.Status, c.ExpiresAt, c.CreatedAt,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// RaffleIDOf returns the owning raffle without locking, so callers can lock
// the raffle before the cart.
func (r *CartRepo) RaffleIDOf(ctx context.Context, id uuid.UUID) (int64, error) {
	const op = "postgres.CartRepo.RaffleIDOf"

	var raffleID int64
	if err := r.handle().QueryRow(ctx, `SELECT raffle_id FROM carts WHERE id = $1`, id).Scan(&raffleID); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return raffleID, nil
}

func (r *CartRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	const op = "postgres.CartRepo.GetForUpdate"

	var c domain.Cart
	if err := r.handle().QueryRow(ctx,
		`SELECT id, raffle_id, status, expires_at, created_at
		   FROM carts
		  WHERE id = $1
		  FOR UPDATE`,
		id,
	).Scan(&c.ID, &c.RaffleID, &c.Status, &c.ExpiresAt, &c.CreatedAt); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &c, nil
}

func (r *CartRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CartStatus) error {
	const op = "postgres.CartRepo.UpdateStatus"

	tag, err := r.handle().Exec(ctx, `UPDATE carts SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

// ListExpiredIDs returns ACTIVE carts whose deadline is not after now.
func (r *CartRepo) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	const op = "postgres.CartRepo.ListExpiredIDs"

	rows, err := r.handle().Query(ctx,
		`SELECT id
		   FROM carts
		  WHERE status = 'ACTIVE' AND expires_at <= $1
		  ORDER BY expires_at
		  LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBErr(op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return ids, nil
}

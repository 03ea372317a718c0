package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

type CustomerRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CustomerRepo) With(db DB) *CustomerRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CustomerRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Upsert finds the customer by email, else by phone, refreshing the name and
// filling contact fields that were missing. Otherwise a new row is inserted.
// c is expected to be normalized.
func (r *CustomerRepo) Upsert(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	const op = "postgres.CustomerRepo.Upsert"

	db := r.handle()

	id, err := r.find(ctx, db, c)
	if err != nil {
		return domain.Customer{}, wrapDBErr(op, err)
	}

	if id == 0 {
		if err := db.QueryRow(ctx,
			`INSERT INTO customers(full_name, email, phone_prefix, phone_number)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			c.FullName, c.Email, c.PhonePrefix, c.PhoneNumber,
		).Scan(&c.ID); err != nil {
			return domain.Customer{}, wrapDBErr(op, err)
		}
		return c, nil
	}

	var out domain.Customer
	if err := db.QueryRow(ctx,
		`UPDATE customers
		    SET full_name = $2,
		        email = COALESCE(email, $3),
		        phone_prefix = COALESCE(phone_prefix, $4),
		        phone_number = COALESCE(phone_number, $5)
		  WHERE id = $1
		  RETURNING id, full_name, email, phone_prefix, phone_number`,
		id, c.FullName, c.Email, c.PhonePrefix, c.PhoneNumber,
	).Scan(&out.ID, &out.FullName, &out.Email, &out.PhonePrefix, &out.PhoneNumber); err != nil {
		return domain.Customer{}, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CustomerRepo) find(ctx context.Context, db DB, c domain.Customer) (int64, error) {
	var row pgx.Row
	switch {
	case c.Email != nil:
		row = db.QueryRow(ctx, `SELECT id FROM customers WHERE email = $1 FOR UPDATE`, *c.Email)
	case c.PhoneNumber != nil:
		row = db.QueryRow(ctx,
			`SELECT id FROM customers
			  WHERE phone_number = $1 AND phone_prefix IS NOT DISTINCT FROM $2
			  FOR UPDATE`,
			*c.PhoneNumber, c.PhonePrefix,
		)
	default:
		return 0, nil
	}

	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}

	return id, nil
}

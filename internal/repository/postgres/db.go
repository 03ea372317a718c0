package postgres

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	const op = "postgres.Store.Migrate"

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// DefaultTxOptions is what RunTx uses when opts is nil.
var DefaultTxOptions = pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite}

// RunTx runs fn in one transaction, committing when fn returns nil. Errors
// from fn are returned untouched; driver failures are translated.
func (s *Store) RunTx(ctx context.Context, opts *pgx.TxOptions, fn func(ctx context.Context, tx DB) error) error {
	const op = "postgres.Store.RunTx"

	txOpts := DefaultTxOptions
	if opts != nil {
		txOpts = *opts
	}

	var fnErr error
	err := pgx.BeginTxFunc(ctx, s.pool, txOpts, func(tx pgx.Tx) error {
		fnErr = fn(ctx, tx)
		return fnErr
	})
	switch {
	case fnErr != nil:
		return fnErr
	case err != nil:
		return wrapDBErr(op, err)
	}

	return nil
}

func (s *Store) Raffles() *RaffleRepo     { return &RaffleRepo{pool: s.pool} }
func (s *Store) Statistics() *StatsRepo   { return &StatsRepo{pool: s.pool} }
func (s *Store) Tickets() *TicketRepo     { return &TicketRepo{pool: s.pool} }
func (s *Store) Carts() *CartRepo         { return &CartRepo{pool: s.pool} }
func (s *Store) Customers() *CustomerRepo { return &CustomerRepo{pool: s.pool} }
func (s *Store) Orders() *OrderRepo       { return &OrderRepo{pool: s.pool} }
func (s *Store) Query() *QueryRepo        { return &QueryRepo{pool: s.pool} }

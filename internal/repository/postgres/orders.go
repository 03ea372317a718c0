package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kirinyoku/raffle-go/internal/domain"
	"github.com/kirinyoku/raffle-go/internal/repository"
)

type OrderRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *OrderRepo) With(db DB) *OrderRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *OrderRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const orderColumns = `o.id, o.order_reference, o.raffle_id, o.customer_id, o.status, o.comment,
	o.created_at, o.updated_at, o.completed_at, o.cancelled_at, o.unpaid_at, o.refunded_at,
	p.id, p.total::text, p.payment_method`

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		o             domain.Order
		total, method string
	)

	if err := row.Scan(
		&o.ID,
		&o.Reference,
		&o.RaffleID,
		&o.CustomerID,
		&o.Status,
		&o.Comment,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.CompletedAt,
		&o.CancelledAt,
		&o.UnpaidAt,
		&o.RefundedAt,
		&o.Payment.ID,
		&total,
		&method,
	); err != nil {
		return nil, err
	}

	t, err := decimal.NewFromString(total)
	if err != nil {
		return nil, err
	}
	o.Payment.OrderID = o.ID
	o.Payment.Total = t
	o.Payment.Method = domain.ParsePaymentMethod(method)

	return &o, nil
}

// Create inserts the order together with its items and payment.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	const op = "postgres.OrderRepo.Create"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO orders(id, order_reference, raffle_id, customer_id, status, comment, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.Reference, o.RaffleID, o.CustomerID, o.Status, o.Comment, o.CreatedAt, o.UpdatedAt,
	); err != nil {
		return wrapDBErr(op, err)
	}

	batch := &pgx.Batch{}
	for _, it := range o.Items {
		batch.Queue(
			`INSERT INTO order_items(order_id, ticket_id, raffle_id, customer_id, ticket_number, price_at_purchase)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID, it.TicketID, it.RaffleID, it.CustomerID, it.TicketNumber, it.PriceAtPurchase,
		)
	}
	batch.Queue(
		`INSERT INTO payments(order_id, total, payment_method) VALUES ($1, $2, $3)`,
		o.ID, o.Payment.Total, o.Payment.Method,
	)
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// RaffleIDOf returns the order's raffle without locking, so callers can lock
// the raffle before the order.
func (r *OrderRepo) RaffleIDOf(ctx context.Context, id uuid.UUID) (int64, error) {
	const op = "postgres.OrderRepo.RaffleIDOf"

	var raffleID int64
	if err := r.handle().QueryRow(ctx, `SELECT raffle_id FROM orders WHERE id = $1`, id).Scan(&raffleID); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return raffleID, nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.get(ctx, "postgres.OrderRepo.Get", id, false)
}

// GetForUpdate locks the order row and loads its items and payment.
func (r *OrderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.get(ctx, "postgres.OrderRepo.GetForUpdate", id, true)
}

func (r *OrderRepo) get(ctx context.Context, op string, id uuid.UUID, lock bool) (*domain.Order, error) {
	db := r.handle()

	q := `SELECT ` + orderColumns + `
	        FROM orders o
	        JOIN payments p ON p.order_id = o.id
	       WHERE o.id = $1`
	if lock {
		q += ` FOR UPDATE OF o`
	}

	o, err := scanOrder(db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	rows, err := db.Query(ctx,
		`SELECT id, order_id, ticket_id, raffle_id, customer_id, ticket_number, price_at_purchase::text
		   FROM order_items
		  WHERE order_id = $1
		  ORDER BY ticket_number::bigint, id`,
		id,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it    domain.OrderItem
			price string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.TicketID, &it.RaffleID, &it.CustomerID, &it.TicketNumber, &price); err != nil {
			return nil, wrapDBErr(op, err)
		}
		if it.PriceAtPurchase, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return o, nil
}

// Update writes status, comment and timestamps. Items and payment are immutable.
func (r *OrderRepo) Update(ctx context.Context, o *domain.Order) error {
	const op = "postgres.OrderRepo.Update"

	tag, err := r.handle().Exec(ctx,
		`UPDATE orders
		    SET status = $2,
		        comment = $3,
		        updated_at = $4,
		        completed_at = $5,
		        cancelled_at = $6,
		        unpaid_at = $7,
		        refunded_at = $8
		  WHERE id = $1`,
		o.ID, o.Status, o.Comment, o.UpdatedAt, o.CompletedAt, o.CancelledAt, o.UnpaidAt, o.RefundedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

// HasOrderInRaffle reports whether the customer already ordered in the raffle.
func (r *OrderRepo) HasOrderInRaffle(ctx context.Context, raffleID, customerID int64) (bool, error) {
	const op = "postgres.OrderRepo.HasOrderInRaffle"

	var exists bool
	if err := r.handle().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE raffle_id = $1 AND customer_id = $2)`,
		raffleID, customerID,
	).Scan(&exists); err != nil {
		return false, wrapDBErr(op, err)
	}

	return exists, nil
}

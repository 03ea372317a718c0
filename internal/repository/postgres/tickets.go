package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/raffle-go/internal/domain"
	"github.com/kirinyoku/raffle-go/internal/repository"
)

type TicketRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TicketRepo) With(db DB) *TicketRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TicketRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const ticketColumns = `id, raffle_id, ticket_number, status, customer_id, cart_id`

func collectTickets(rows pgx.Rows) ([]*domain.Ticket, error) {
	defer rows.Close()

	var out []*domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.ID, &t.RaffleID, &t.Number, &t.Status, &t.CustomerID, &t.CartID); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}

	return out, rows.Err()
}

// BatchCreate mints AVAILABLE tickets with the given numbers.
func (r *TicketRepo) BatchCreate(ctx context.Context, raffleID int64, numbers []string) error {
	const op = "postgres.TicketRepo.BatchCreate"

	if len(numbers) == 0 {
		return nil
	}

	tag, err := r.handle().Exec(ctx,
		`INSERT INTO tickets(raffle_id, ticket_number, status)
		 SELECT $1, n, 'AVAILABLE' FROM unnest($2::text[]) AS n`,
		raffleID, numbers,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if int(tag.RowsAffected()) != len(numbers) {
		return fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}

	return nil
}

func (r *TicketRepo) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const op = "postgres.TicketRepo.GetByID"

	var t domain.Ticket
	if err := r.handle().QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id,
	).Scan(&t.ID, &t.RaffleID, &t.Number, &t.Status, &t.CustomerID, &t.CartID); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &t, nil
}

// GetByIDsForUpdate locks and returns the tickets of raffleID among ids.
// Missing ids are simply absent from the result.
func (r *TicketRepo) GetByIDsForUpdate(ctx context.Context, raffleID int64, ids []int64) ([]*domain.Ticket, error) {
	const op = "postgres.TicketRepo.GetByIDsForUpdate"

	rows, err := r.handle().Query(ctx,
		`SELECT `+ticketColumns+`
		   FROM tickets
		  WHERE raffle_id = $1 AND id = ANY($2)
		  ORDER BY id
		  FOR UPDATE`,
		raffleID, ids,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	tickets, err := collectTickets(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return tickets, nil
}

// ListByCartForUpdate locks the tickets a cart currently holds.
func (r *TicketRepo) ListByCartForUpdate(ctx context.Context, cartID uuid.UUID) ([]*domain.Ticket, error) {
	const op = "postgres.TicketRepo.ListByCartForUpdate"

	rows, err := r.handle().Query(ctx,
		`SELECT `+ticketColumns+`
		   FROM tickets
		  WHERE cart_id = $1
		  ORDER BY ticket_number::bigint
		  FOR UPDATE`,
		cartID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	tickets, err := collectTickets(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return tickets, nil
}

// Reserve moves AVAILABLE tickets into the cart. Rows that are no longer
// AVAILABLE are not touched and the call fails with repository.ErrConflict.
func (r *TicketRepo) Reserve(ctx context.Context, raffleID int64, cartID uuid.UUID, ids []int64) error {
	const op = "postgres.TicketRepo.Reserve"

	tag, err := r.handle().Exec(ctx,
		`UPDATE tickets
		    SET status = 'RESERVED', cart_id = $3, customer_id = NULL
		  WHERE raffle_id = $1
		    AND id = ANY($2)
		    AND status = 'AVAILABLE'`,
		raffleID, ids, cartID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if int(tag.RowsAffected()) != len(ids) {
		return fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}

	return nil
}

// Save writes status, customer and cart of every ticket in one batch.
func (r *TicketRepo) Save(ctx context.Context, tickets []*domain.Ticket) error {
	const op = "postgres.TicketRepo.Save"

	if len(tickets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(
			`UPDATE tickets SET status = $2, customer_id = $3, cart_id = $4 WHERE id = $1`,
			t.ID, t.Status, t.CustomerID, t.CartID,
		)
	}

	br := r.handle().SendBatch(ctx, batch)
	for _, t := range tickets {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return wrapDBErr(op, err)
		}
		if tag.RowsAffected() != 1 {
			_ = br.Close()
			return fmt.Errorf("%s: ticket %d: %w", op, t.ID, repository.ErrNotFound)
		}
	}
	if err := br.Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *TicketRepo) MaxNumber(ctx context.Context, raffleID int64) (int64, error) {
	const op = "postgres.TicketRepo.MaxNumber"

	var maxNumber int64
	if err := r.handle().QueryRow(ctx,
		`SELECT COALESCE(MAX(ticket_number::bigint), -1) FROM tickets WHERE raffle_id = $1`,
		raffleID,
	).Scan(&maxNumber); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return maxNumber, nil
}

const removableTickets = `FROM tickets t
	WHERE t.raffle_id = $1
	  AND t.status = 'AVAILABLE'
	  AND NOT EXISTS (SELECT 1 FROM order_items oi WHERE oi.ticket_id = t.id)`

// CountRemovable counts AVAILABLE tickets that no order item references.
func (r *TicketRepo) CountRemovable(ctx context.Context, raffleID int64) (int, error) {
	const op = "postgres.TicketRepo.CountRemovable"

	var n int
	if err := r.handle().QueryRow(ctx, `SELECT count(*) `+removableTickets, raffleID).Scan(&n); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

// DeleteRemovable deletes the n highest-numbered removable tickets.
func (r *TicketRepo) DeleteRemovable(ctx context.Context, raffleID int64, n int) error {
	const op = "postgres.TicketRepo.DeleteRemovable"

	if n <= 0 {
		return nil
	}

	tag, err := r.handle().Exec(ctx,
		`DELETE FROM tickets
		  WHERE id IN (
		        SELECT t.id `+removableTickets+`
		         ORDER BY t.ticket_number::bigint DESC
		         LIMIT $2)`,
		raffleID, n,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if int(tag.RowsAffected()) != n {
		return fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}

	return nil
}

// CountReserved counts RESERVED tickets, the inventory share the statistics
// row does not store.
func (r *TicketRepo) CountReserved(ctx context.Context, raffleID int64) (int, error) {
	const op = "postgres.TicketRepo.CountReserved"

	var n int
	if err := r.handle().QueryRow(ctx,
		`SELECT count(*) FROM tickets WHERE raffle_id = $1 AND status = 'RESERVED'`, raffleID,
	).Scan(&n); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kirinyoku/raffle-go/internal/domain"
	"github.com/kirinyoku/raffle-go/internal/repository"
)

type RaffleRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *RaffleRepo) With(db DB) *RaffleRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *RaffleRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const raffleColumns = `id, title, description, status, total_tickets, first_ticket_number,
	ticket_price::text, start_date, end_date, completed_at, completion_reason,
	winning_ticket_id, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRaffle(row scanner) (*domain.Raffle, error) {
	var (
		r     domain.Raffle
		price string
	)

	if err := row.Scan(
		&r.ID,
		&r.Title,
		&r.Description,
		&r.Status,
		&r.TotalTickets,
		&r.FirstTicketNumber,
		&price,
		&r.StartDate,
		&r.EndDate,
		&r.CompletedAt,
		&r.CompletionReason,
		&r.WinningTicketID,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	r.TicketPrice = p

	return &r, nil
}

// Create inserts r and returns its generated id.
func (r *RaffleRepo) Create(ctx context.Context, raffle *domain.Raffle) (int64, error) {
	const op = "postgres.RaffleRepo.Create"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO raffles(title, description, status, total_tickets, first_ticket_number,
		                     ticket_price, start_date, end_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		raffle.Title,
		raffle.Description,
		raffle.Status,
		raffle.TotalTickets,
		raffle.FirstTicketNumber,
		raffle.TicketPrice,
		raffle.StartDate,
		raffle.EndDate,
		raffle.CreatedAt,
		raffle.UpdatedAt,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *RaffleRepo) Get(ctx context.Context, id int64) (*domain.Raffle, error) {
	const op = "postgres.RaffleRepo.Get"

	raffle, err := scanRaffle(r.handle().QueryRow(ctx,
		`SELECT `+raffleColumns+` FROM raffles WHERE id = $1`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return raffle, nil
}

// GetForUpdate locks the raffle row until the surrounding transaction ends.
// Every mutation of a raffle, its tickets or its orders takes this lock first.
func (r *RaffleRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Raffle, error) {
	const op = "postgres.RaffleRepo.GetForUpdate"

	raffle, err := scanRaffle(r.handle().QueryRow(ctx,
		`SELECT `+raffleColumns+` FROM raffles WHERE id = $1 FOR UPDATE`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return raffle, nil
}

func (r *RaffleRepo) Update(ctx context.Context, raffle *domain.Raffle) error {
	const op = "postgres.RaffleRepo.Update"

	tag, err := r.handle().Exec(ctx,
		`UPDATE raffles
		    SET title = $2,
		        description = $3,
		        status = $4,
		        total_tickets = $5,
		        ticket_price = $6,
		        start_date = $7,
		        end_date = $8,
		        completed_at = $9,
		        completion_reason = $10,
		        winning_ticket_id = $11,
		        updated_at = $12
		  WHERE id = $1`,
		raffle.ID,
		raffle.Title,
		raffle.Description,
		raffle.Status,
		raffle.TotalTickets,
		raffle.TicketPrice,
		raffle.StartDate,
		raffle.EndDate,
		raffle.CompletedAt,
		raffle.CompletionReason,
		raffle.WinningTicketID,
		raffle.UpdatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

// Delete removes the raffle; tickets, carts and statistics cascade.
func (r *RaffleRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgres.RaffleRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM raffles WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

// ListEndedIDs returns ACTIVE or PAUSED raffles whose end date is not after now.
func (r *RaffleRepo) ListEndedIDs(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	const op = "postgres.RaffleRepo.ListEndedIDs"

	rows, err := r.handle().Query(ctx,
		`SELECT id
		   FROM raffles
		  WHERE status IN ('ACTIVE', 'PAUSED')
		    AND end_date <= $1
		  ORDER BY end_date
		  LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
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

type StatsRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *StatsRepo) With(db DB) *StatsRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *StatsRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const statsColumns = `raffle_id, available_tickets, sold_tickets, pending_orders, completed_orders,
	cancelled_orders, unpaid_orders, refunded_orders, total_orders, participants,
	revenue::text, average_order_value::text, first_sale_date, last_sale_date`

func scanStats(row scanner) (*domain.RaffleStatistics, error) {
	var (
		s                domain.RaffleStatistics
		revenue, average string
	)

	if err := row.Scan(
		&s.RaffleID,
		&s.AvailableTickets,
		&s.SoldTickets,
		&s.PendingOrders,
		&s.CompletedOrders,
		&s.CancelledOrders,
		&s.UnpaidOrders,
		&s.RefundedOrders,
		&s.TotalOrders,
		&s.Participants,
		&revenue,
		&average,
		&s.FirstSaleDate,
		&s.LastSaleDate,
	); err != nil {
		return nil, err
	}

	var err error
	if s.Revenue, err = decimal.NewFromString(revenue); err != nil {
		return nil, err
	}
	if s.AverageOrderValue, err = decimal.NewFromString(average); err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *StatsRepo) Create(ctx context.Context, s *domain.RaffleStatistics) error {
	const op = "postgres.StatsRepo.Create"

	if _, err := r.handle().Exec(ctx,
		`INSERT INTO raffle_statistics(raffle_id, available_tickets) VALUES ($1, $2)`,
		s.RaffleID, s.AvailableTickets,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *StatsRepo) Get(ctx context.Context, raffleID int64) (*domain.RaffleStatistics, error) {
	const op = "postgres.StatsRepo.Get"

	s, err := scanStats(r.handle().QueryRow(ctx,
		`SELECT `+statsColumns+` FROM raffle_statistics WHERE raffle_id = $1`, raffleID,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return s, nil
}

func (r *StatsRepo) GetForUpdate(ctx context.Context, raffleID int64) (*domain.RaffleStatistics, error) {
	const op = "postgres.StatsRepo.GetForUpdate"

	s, err := scanStats(r.handle().QueryRow(ctx,
		`SELECT `+statsColumns+` FROM raffle_statistics WHERE raffle_id = $1 FOR UPDATE`, raffleID,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return s, nil
}

func (r *StatsRepo) Update(ctx context.Context, s *domain.RaffleStatistics) error {
	const op = "postgres.StatsRepo.Update"

	tag, err := r.handle().Exec(ctx,
		`UPDATE raffle_statistics
		    SET available_tickets = $2,
		        sold_tickets = $3,
		        pending_orders = $4,
		        completed_orders = $5,
		        cancelled_orders = $6,
		        unpaid_orders = $7,
		        refunded_orders = $8,
		        total_orders = $9,
		        participants = $10,
		        revenue = $11,
		        average_order_value = $12,
		        first_sale_date = $13,
		        last_sale_date = $14
		  WHERE raffle_id = $1`,
		s.RaffleID,
		s.AvailableTickets,
		s.SoldTickets,
		s.PendingOrders,
		s.CompletedOrders,
		s.CancelledOrders,
		s.UnpaidOrders,
		s.RefundedOrders,
		s.TotalOrders,
		s.Participants,
		s.Revenue,
		s.AverageOrderValue,
		s.FirstSaleDate,
		s.LastSaleDate,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

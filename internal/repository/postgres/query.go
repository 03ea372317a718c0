package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

// QueryRepo serves read models. Run it inside a read-only transaction to get
// a consistent snapshot across the statements it issues.
type QueryRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *QueryRepo) With(db DB) *QueryRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *QueryRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *QueryRepo) RaffleSummary(ctx context.Context, raffleID int64) (*domain.RaffleSummary, error) {
	db := r.handle()

	raffle, err := (&RaffleRepo{db: db}).Get(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	stats, err := (&StatsRepo{db: db}).Get(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	reserved, err := (&TicketRepo{db: db}).CountReserved(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	return &domain.RaffleSummary{Raffle: *raffle, Statistics: *stats, ReservedTickets: reserved}, nil
}

func (r *QueryRepo) Statistics(ctx context.Context, raffleID int64) (*domain.RaffleStatistics, error) {
	return (&StatsRepo{db: r.handle()}).Get(ctx, raffleID)
}

func (r *QueryRepo) OrderWithCustomer(ctx context.Context, orderID uuid.UUID) (*domain.OrderWithCustomer, error) {
	const op = "postgres.QueryRepo.OrderWithCustomer"

	db := r.handle()

	order, err := (&OrderRepo{db: db}).Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var c domain.Customer
	if err := db.QueryRow(ctx,
		`SELECT id, full_name, email, phone_prefix, phone_number FROM customers WHERE id = $1`,
		order.CustomerID,
	).Scan(&c.ID, &c.FullName, &c.Email, &c.PhonePrefix, &c.PhoneNumber); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &domain.OrderWithCustomer{Order: *order, Customer: c}, nil
}

package lifecycle

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	raffle       *domain.Raffle
	stats        *domain.RaffleStatistics
	tickets      []*domain.Ticket
	orders       []*domain.Order
	nextCustomer int64
}

// newFixture returns an ACTIVE raffle ending in 30 days with n AVAILABLE
// tickets numbered from 1.
func newFixture(t *testing.T, n int, price string) *fixture {
	t.Helper()

	start := now.Add(-time.Hour)
	r := &domain.Raffle{
		ID:                7,
		Title:             "Spring raffle",
		Status:            domain.RaffleActive,
		TotalTickets:      n,
		FirstTicketNumber: 1,
		TicketPrice:       decimal.RequireFromString(price),
		StartDate:         &start,
		EndDate:           now.Add(30 * 24 * time.Hour),
		CreatedAt:         start,
		UpdatedAt:         start,
	}
	stats := NewStatistics(r.ID, n)

	f := &fixture{raffle: r, stats: &stats}
	for i, num := range NumberRange(1, n) {
		f.tickets = append(f.tickets, &domain.Ticket{
			ID:       int64(i + 1),
			RaffleID: r.ID,
			Number:   num,
			Status:   domain.TicketAvailable,
		})
	}
	return f
}

func (f *fixture) ticketsByID(ids ...int64) []*domain.Ticket {
	out := make([]*domain.Ticket, 0, len(ids))
	for _, id := range ids {
		for _, tk := range f.tickets {
			if tk.ID == id {
				out = append(out, tk)
			}
		}
	}
	return out
}

// place reserves ids into a fresh cart and converts it into a PENDING order.
func (f *fixture) place(t *testing.T, ids ...int64) *domain.Order {
	t.Helper()

	o, err := f.tryPlace(ids...)
	require.NoError(t, err)
	return o
}

func (f *fixture) tryPlace(ids ...int64) (*domain.Order, error) {
	cart, err := OpenCart(f.raffle, uuid.New(), 15*time.Minute, now)
	if err != nil {
		return nil, err
	}
	selected := f.ticketsByID(ids...)
	if err := AddToCart(&cart, f.raffle, selected, f.stats, now); err != nil {
		return nil, err
	}

	f.nextCustomer++
	order, err := PlaceOrder(Placement{
		OrderID:        uuid.New(),
		Reference:      "RF-TEST",
		Raffle:         f.raffle,
		Cart:           &cart,
		CartTickets:    selected,
		TicketIDs:      ids,
		Customer:       domain.Customer{ID: f.nextCustomer, FullName: "Ann Example"},
		Method:         domain.PaymentCash,
		NewParticipant: true,
	}, f.stats, now)
	if err != nil {
		return nil, err
	}

	f.orders = append(f.orders, &order)
	return &order, nil
}

func (f *fixture) transition(o *domain.Order, to domain.OrderStatus) (TransitionResult, error) {
	return TransitionOrder(OrderAggregate{
		Raffle:  f.raffle,
		Stats:   f.stats,
		Order:   o,
		Tickets: f.tickets,
	}, to, now)
}

type snapshot struct {
	raffle  domain.Raffle
	stats   domain.RaffleStatistics
	tickets []domain.Ticket
	orders  []domain.Order
}

func (f *fixture) snapshot() snapshot {
	s := snapshot{raffle: *f.raffle, stats: *f.stats}
	for _, tk := range f.tickets {
		s.tickets = append(s.tickets, *tk)
	}
	for _, o := range f.orders {
		s.orders = append(s.orders, *o)
	}
	return s
}

// requireConsistent checks the inventory and order counter invariants.
func (f *fixture) requireConsistent(t *testing.T) {
	t.Helper()

	reserved := CountByStatus(f.tickets, domain.TicketReserved)
	sold := CountByStatus(f.tickets, domain.TicketSold)
	available := CountByStatus(f.tickets, domain.TicketAvailable)

	require.Equal(t, f.raffle.TotalTickets, len(f.tickets))
	require.Equal(t, f.raffle.TotalTickets, f.stats.AvailableTickets+f.stats.SoldTickets+reserved)
	require.Equal(t, sold, f.stats.SoldTickets)
	require.Equal(t, available, f.stats.AvailableTickets)

	s := f.stats
	require.Equal(t, s.TotalOrders,
		s.PendingOrders+s.CompletedOrders+s.CancelledOrders+s.UnpaidOrders+s.RefundedOrders)

	revenue := decimal.Zero
	completed := 0
	for _, o := range f.orders {
		if o.Status == domain.OrderCompleted {
			revenue = revenue.Add(o.Payment.Total)
			completed++
		}
	}
	require.Equal(t, completed, s.CompletedOrders)
	require.True(t, revenue.Equal(s.Revenue), "revenue %s, want %s", s.Revenue, revenue)

	if f.raffle.Status == domain.RaffleCompleted {
		require.NotNil(t, f.raffle.CompletionReason)
		require.NotNil(t, f.raffle.CompletedAt)
	} else {
		require.Nil(t, f.raffle.CompletionReason)
		require.Nil(t, f.raffle.CompletedAt)
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

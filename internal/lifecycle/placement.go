package lifecycle

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

// Placement is the input of converting a cart into a PENDING order.
type Placement struct {
	OrderID        uuid.UUID
	Reference      string
	Raffle         *domain.Raffle
	Cart           *domain.Cart
	CartTickets    []*domain.Ticket
	TicketIDs      []int64
	Customer       domain.Customer
	Method         domain.PaymentMethod
	NewParticipant bool
}

// PlaceOrder validates the cart hand-over, assigns the tickets to the customer
// and applies the order-created delta to stats. Nothing is modified on error.
func PlaceOrder(p Placement, stats *domain.RaffleStatistics, now time.Time) (domain.Order, error) {
	if p.Cart == nil || p.Cart.RaffleID != p.Raffle.ID {
		return domain.Order{}, NotFoundError{Resource: "cart"}
	}
	if !p.Cart.Open(now) {
		return domain.Order{}, ValidationError{Field: "cart_id", Reason: "cart is not active"}
	}
	if p.Raffle.Status != domain.RaffleActive {
		return domain.Order{}, ValidationError{Field: "raffle", Reason: "raffle is not ACTIVE"}
	}
	if err := checkCartSelection(p.TicketIDs, p.CartTickets); err != nil {
		return domain.Order{}, err
	}
	for _, t := range p.CartTickets {
		if t.Status != domain.TicketReserved || t.CartID == nil || *t.CartID != p.Cart.ID {
			return domain.Order{}, TicketsUnavailableError{TicketIDs: []int64{t.ID}}
		}
	}

	tickets := append([]*domain.Ticket(nil), p.CartTickets...)
	SortByNumber(tickets)
	AssignToCustomer(tickets, p.Customer.ID)

	order := domain.Order{
		ID:         p.OrderID,
		Reference:  p.Reference,
		RaffleID:   p.Raffle.ID,
		CustomerID: p.Customer.ID,
		Status:     domain.OrderPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for _, t := range tickets {
		order.Items = append(order.Items, domain.OrderItem{
			OrderID:         order.ID,
			TicketID:        t.ID,
			RaffleID:        t.RaffleID,
			CustomerID:      p.Customer.ID,
			TicketNumber:    t.Number,
			PriceAtPurchase: p.Raffle.TicketPrice,
		})
	}

	order.Payment = domain.Payment{
		OrderID: order.ID,
		Total:   p.Raffle.TicketPrice.Mul(decimal.NewFromInt(int64(len(tickets)))),
		Method:  p.Method,
	}

	*stats = ApplyStats(*stats, StatsEvent{
		Kind:           StatsOrderCreated,
		Tickets:        len(tickets),
		NewParticipant: p.NewParticipant,
		At:             now,
	})

	p.Cart.Status = domain.CartConverted

	return order, nil
}

// checkCartSelection requires the requested ids to be exactly the cart's tickets.
func checkCartSelection(ids []int64, cartTickets []*domain.Ticket) error {
	if len(ids) == 0 {
		return ValidationError{Field: "ticket_ids", Reason: "at least one ticket is required"}
	}

	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return ValidationError{Field: "ticket_ids", Reason: "duplicate ticket id"}
		}
		seen[id] = struct{}{}
	}

	if len(seen) != len(cartTickets) {
		return ValidationError{Field: "ticket_ids", Reason: "all cart tickets must be included"}
	}
	for _, t := range cartTickets {
		if _, ok := seen[t.ID]; !ok {
			return ValidationError{Field: "ticket_ids", Reason: "all cart tickets must be included"}
		}
	}

	return nil
}

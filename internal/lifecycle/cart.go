package lifecycle

import (
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

func OpenCart(r *domain.Raffle, id uuid.UUID, ttl time.Duration, now time.Time) (domain.Cart, error) {
	if r.Status != domain.RaffleActive {
		return domain.Cart{}, ValidationError{Field: "raffle", Reason: "raffle is not ACTIVE"}
	}
	return domain.Cart{
		ID:        id,
		RaffleID:  r.ID,
		Status:    domain.CartActive,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// AddToCart reserves tickets into an open cart of an ACTIVE raffle.
func AddToCart(
	c *domain.Cart,
	r *domain.Raffle,
	tickets []*domain.Ticket,
	stats *domain.RaffleStatistics,
	now time.Time,
) error {
	if !c.Open(now) {
		return ValidationError{Field: "cart_id", Reason: "cart is not active"}
	}
	if r.Status != domain.RaffleActive {
		return ValidationError{Field: "raffle", Reason: "raffle is not ACTIVE"}
	}
	if len(tickets) == 0 {
		return ValidationError{Field: "ticket_ids", Reason: "at least one ticket is required"}
	}

	id := c.ID
	if err := Reserve(tickets, r.ID, &id, nil); err != nil {
		return err
	}

	*stats = ApplyStats(*stats, StatsEvent{Kind: StatsTicketsReserved, Tickets: len(tickets), At: now})
	return nil
}

// RemoveFromCart releases tickets the cart holds. Tickets held elsewhere
// fail the whole call.
func RemoveFromCart(
	c *domain.Cart,
	tickets []*domain.Ticket,
	stats *domain.RaffleStatistics,
	now time.Time,
) error {
	if c.Status != domain.CartActive {
		return ValidationError{Field: "cart_id", Reason: "cart is not active"}
	}

	var foreign []int64
	for _, t := range tickets {
		if !heldBy(t, c.ID) {
			foreign = append(foreign, t.ID)
		}
	}
	if len(foreign) > 0 {
		return TicketsUnavailableError{TicketIDs: foreign}
	}

	Release(tickets)
	*stats = ApplyStats(*stats, StatsEvent{Kind: StatsTicketsReleased, Tickets: len(tickets), At: now})
	return nil
}

// ExpireCart marks an ACTIVE cart past its deadline EXPIRED and releases the
// tickets it still holds.
func ExpireCart(
	c *domain.Cart,
	tickets []*domain.Ticket,
	stats *domain.RaffleStatistics,
	now time.Time,
) bool {
	if c.Status != domain.CartActive || now.Before(c.ExpiresAt) {
		return false
	}

	held := make([]*domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if heldBy(t, c.ID) {
			held = append(held, t)
		}
	}

	Release(held)
	c.Status = domain.CartExpired
	*stats = ApplyStats(*stats, StatsEvent{Kind: StatsTicketsReleased, Tickets: len(held), At: now})
	return true
}

func heldBy(t *domain.Ticket, cartID uuid.UUID) bool {
	return t.Status == domain.TicketReserved && t.CartID != nil && *t.CartID == cartID
}

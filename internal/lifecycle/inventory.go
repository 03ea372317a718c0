package lifecycle

import (
	"slices"

	"github.com/google/uuid"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

// Reserve moves AVAILABLE tickets of raffleID to RESERVED, owned by cartID
// and/or customerID. Nothing is mutated unless every ticket qualifies.
func Reserve(tickets []*domain.Ticket, raffleID int64, cartID *uuid.UUID, customerID *int64) error {
	var unavailable []int64
	for _, t := range tickets {
		if t.RaffleID != raffleID || t.Status != domain.TicketAvailable {
			unavailable = append(unavailable, t.ID)
		}
	}
	if len(unavailable) > 0 {
		return TicketsUnavailableError{TicketIDs: unavailable}
	}

	for _, t := range tickets {
		t.Status = domain.TicketReserved
		t.CartID = cloneUUID(cartID)
		t.CustomerID = cloneInt64(customerID)
	}

	return nil
}

// AssignToCustomer hands reserved cart tickets over to an order's customer.
// The tickets stay RESERVED and lose their cart.
func AssignToCustomer(tickets []*domain.Ticket, customerID int64) {
	for _, t := range tickets {
		t.CartID = nil
		t.CustomerID = cloneInt64(&customerID)
	}
}

// Release returns tickets to AVAILABLE and clears their customer and cart.
func Release(tickets []*domain.Ticket) {
	for _, t := range tickets {
		t.Status = domain.TicketAvailable
		t.CustomerID = nil
		t.CartID = nil
	}
}

func MarkSold(tickets []*domain.Ticket) {
	for _, t := range tickets {
		t.Status = domain.TicketSold
		t.CartID = nil
	}
}

// Resolve maps order items to the live tickets they reference. Any missing
// ticket, or an empty item list, fails the whole batch with NotFoundError.
func Resolve(items []domain.OrderItem, live []*domain.Ticket) ([]*domain.Ticket, error) {
	if len(items) == 0 {
		return nil, NotFoundError{Resource: "tickets"}
	}

	byID := make(map[int64]*domain.Ticket, len(live))
	for _, t := range live {
		byID[t.ID] = t
	}

	out := make([]*domain.Ticket, 0, len(items))
	var missing []int64
	for _, it := range items {
		t, ok := byID[it.TicketID]
		if !ok || t.RaffleID != it.RaffleID {
			missing = append(missing, it.TicketID)
			continue
		}
		out = append(out, t)
	}
	if len(missing) > 0 {
		return nil, NotFoundError{Resource: "tickets", IDs: missing}
	}

	return out, nil
}

// MissingIDs returns the ids in want that are absent from found.
func MissingIDs(want []int64, found []*domain.Ticket) []int64 {
	have := make(map[int64]struct{}, len(found))
	for _, t := range found {
		have[t.ID] = struct{}{}
	}
	var missing []int64
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// NumberRange returns count ticket numbers [first, first+count).
func NumberRange(first int64, count int) []string {
	if count <= 0 {
		return nil
	}
	out := make([]string, 0, count)
	for i := range count {
		out = append(out, domain.FormatTicketNumber(first+int64(i)))
	}
	return out
}

// NextRange continues numbering after the highest existing ticket number.
func NextRange(maxNumber int64, count int) []string {
	return NumberRange(maxNumber+1, count)
}

// SortByNumber orders tickets by numeric ticket number.
func SortByNumber(tickets []*domain.Ticket) {
	slices.SortFunc(tickets, func(a, b *domain.Ticket) int {
		switch av, bv := a.NumberValue(), b.NumberValue(); {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	})
}

func CountByStatus(tickets []*domain.Ticket, status domain.TicketStatus) int {
	n := 0
	for _, t := range tickets {
		if t.Status == status {
			n++
		}
	}
	return n
}

func cloneUUID(v *uuid.UUID) *uuid.UUID {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

package lifecycle

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

type RaffleDraft struct {
	Title             string
	Description       string
	TotalTickets      int
	FirstTicketNumber int
	TicketPrice       decimal.Decimal
	StartDate         *time.Time
	EndDate           time.Time
}

// NewRaffle validates d and returns a PENDING raffle with the ticket numbers
// to mint.
func NewRaffle(d RaffleDraft, now time.Time) (domain.Raffle, []string, error) {
	title := strings.TrimSpace(d.Title)
	switch {
	case title == "":
		return domain.Raffle{}, nil, ValidationError{Field: "title", Reason: "title must not be empty"}
	case d.TotalTickets < 1:
		return domain.Raffle{}, nil, ValidationError{Field: "total_tickets", Reason: "total tickets must be at least 1"}
	case d.FirstTicketNumber < 0:
		return domain.Raffle{}, nil, ValidationError{Field: "first_ticket_number", Reason: "first ticket number must not be negative"}
	case !d.TicketPrice.IsPositive():
		return domain.Raffle{}, nil, ValidationError{Field: "ticket_price", Reason: "ticket price must be positive"}
	}

	if err := ValidateSchedule(d.StartDate, d.EndDate, now); err != nil {
		return domain.Raffle{}, nil, err
	}

	r := domain.Raffle{
		Title:             title,
		Description:       strings.TrimSpace(d.Description),
		Status:            domain.RafflePending,
		TotalTickets:      d.TotalTickets,
		FirstTicketNumber: d.FirstTicketNumber,
		TicketPrice:       d.TicketPrice,
		StartDate:         d.StartDate,
		EndDate:           d.EndDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	return r, NumberRange(int64(d.FirstTicketNumber), d.TotalTickets), nil
}

// CanDelete allows deletion of PENDING raffles only.
func CanDelete(r *domain.Raffle) error {
	if r.Status != domain.RafflePending {
		return ForbiddenError{Reason: "only PENDING raffles can be deleted"}
	}
	return nil
}

// RecordWinner stores the winning ticket of a COMPLETED raffle.
func RecordWinner(r *domain.Raffle, t *domain.Ticket, now time.Time) error {
	if r.Status != domain.RaffleCompleted {
		return ValidationError{Field: "status", Reason: "a winner can only be recorded for a COMPLETED raffle"}
	}
	if t.RaffleID != r.ID {
		return NotFoundError{Resource: "ticket", IDs: []int64{t.ID}}
	}
	if t.Status != domain.TicketSold {
		return ValidationError{Field: "ticket_id", Reason: "winning ticket must be SOLD"}
	}
	id := t.ID
	r.WinningTicketID = &id
	r.UpdatedAt = now
	return nil
}

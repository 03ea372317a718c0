package lifecycle

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

// RaffleEdit is a partial update; nil fields are left unchanged.
type RaffleEdit struct {
	Title        *string
	Description  *string
	TicketPrice  *decimal.Decimal
	EndDate      *time.Time
	TotalTickets *int
}

// EditFacts are inventory facts the edit needs from storage.
type EditFacts struct {
	// MaxTicketNumber is the highest existing ticket number.
	MaxTicketNumber int64
	// RemovableTickets counts AVAILABLE tickets no order item references.
	RemovableTickets int
}

type EditPlan struct {
	MintNumbers []string
	RemoveCount int
	Reactivated bool
	// Deferred is returned to the caller after the edit has been persisted.
	Deferred error
}

// ApplyRaffleEdit validates edit against r and stats and applies it in place.
// On a non-nil error nothing has been modified.
func ApplyRaffleEdit(
	r *domain.Raffle,
	stats *domain.RaffleStatistics,
	edit RaffleEdit,
	facts EditFacts,
	now time.Time,
) (EditPlan, error) {
	var plan EditPlan

	if edit.Title != nil && strings.TrimSpace(*edit.Title) == "" {
		return plan, ValidationError{Field: "title", Reason: "title must not be empty"}
	}

	if edit.TicketPrice != nil {
		if r.Status != domain.RafflePending {
			return plan, ValidationError{Field: "ticket_price", Reason: "ticket price can only change while the raffle is PENDING"}
		}
		if !edit.TicketPrice.IsPositive() {
			return plan, ValidationError{Field: "ticket_price", Reason: "ticket price must be positive"}
		}
	}

	grow := 0
	if edit.TotalTickets != nil {
		n := *edit.TotalTickets
		switch {
		case n < 1:
			return plan, ValidationError{Field: "total_tickets", Reason: "total tickets must be at least 1"}
		case n < stats.SoldTickets:
			return plan, ValidationError{Field: "total_tickets", Reason: "total tickets cannot be lower than sold tickets"}
		case n < r.TotalTickets && r.TotalTickets-n > facts.RemovableTickets:
			return plan, ValidationError{Field: "total_tickets", Reason: "not enough unreferenced available tickets to remove"}
		}
		grow = n - r.TotalTickets
	}

	extended := false
	if edit.EndDate != nil {
		end := *edit.EndDate
		extended = end.After(r.EndDate)

		if r.Status == domain.RaffleCompleted && reasonIs(r, domain.CompletionEndDateReached) {
			plan.Deferred = CheckRunway(end, now)
		} else if err := ValidateSchedule(r.StartDate, end, now); err != nil {
			return plan, err
		}
	}

	triggers := r.Status == domain.RaffleCompleted && (extended || grow > 0)
	if triggers && r.HasWinner() {
		return plan, errWinnerBlocksReactivation
	}

	if edit.Title != nil {
		r.Title = strings.TrimSpace(*edit.Title)
	}
	if edit.Description != nil {
		r.Description = strings.TrimSpace(*edit.Description)
	}
	if edit.TicketPrice != nil {
		r.TicketPrice = *edit.TicketPrice
	}
	if edit.EndDate != nil {
		r.EndDate = *edit.EndDate
	}

	switch {
	case grow > 0:
		plan.MintNumbers = NextRange(facts.MaxTicketNumber, grow)
		*stats = ApplyStats(*stats, StatsEvent{Kind: StatsTicketsMinted, Tickets: grow, At: now})
	case grow < 0:
		plan.RemoveCount = -grow
		*stats = ApplyStats(*stats, StatsEvent{Kind: StatsTicketsRemoved, Tickets: -grow, At: now})
	}
	if edit.TotalTickets != nil {
		r.TotalTickets = *edit.TotalTickets
	}
	r.UpdatedAt = now

	if triggers && plan.Deferred == nil {
		plan.Reactivated = TryReactivate(r, *stats, now)
	}

	return plan, nil
}

func reasonIs(r *domain.Raffle, reason domain.CompletionReason) bool {
	return r.CompletionReason != nil && *r.CompletionReason == reason
}

package lifecycle

import (
	"slices"
	"time"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

// MinRunway is the end-date margin required to activate or reactivate.
const MinRunway = 24 * time.Hour

var raffleTransitions = map[domain.RaffleStatus][]domain.RaffleStatus{
	domain.RafflePending:   {domain.RaffleActive},
	domain.RaffleActive:    {domain.RafflePaused, domain.RaffleCompleted},
	domain.RafflePaused:    {domain.RaffleActive, domain.RaffleCompleted},
	domain.RaffleCompleted: {domain.RaffleActive},
}

func CanTransitionRaffle(from, to domain.RaffleStatus) bool {
	return slices.Contains(raffleTransitions[from], to)
}

func checkRaffleEdge(from, to domain.RaffleStatus) error {
	if to == domain.RafflePending {
		return errRevertToPending
	}
	if !CanTransitionRaffle(from, to) {
		return UnsupportedTransitionError{Entity: "raffle", From: string(from), To: string(to)}
	}
	return nil
}

// ChangeRaffleStatus is the explicit status update. Unlike the side-effect
// paths it surfaces every failed check.
func ChangeRaffleStatus(r *domain.Raffle, stats domain.RaffleStatistics, to domain.RaffleStatus, now time.Time) error {
	if err := checkRaffleEdge(r.Status, to); err != nil {
		return err
	}

	switch to {
	case domain.RaffleActive:
		if r.Status == domain.RaffleCompleted {
			if err := checkReactivation(r, stats, now); err != nil {
				return err
			}
			reactivate(r, now)
			return nil
		}
		return activate(r, now)
	case domain.RafflePaused:
		r.Status = domain.RafflePaused
		r.UpdatedAt = now
	case domain.RaffleCompleted:
		complete(r, domain.CompletionManuallyComplete, now)
	}

	return nil
}

// CheckRunway requires end to be strictly more than MinRunway after now.
func CheckRunway(end, now time.Time) error {
	if !now.Add(MinRunway).Before(end) {
		return errEndDateTooClose
	}
	return nil
}

// ValidateSchedule is the inclusive check used on create and edit:
// end may be exactly MinRunway after the start (or now, before activation).
func ValidateSchedule(start *time.Time, end, now time.Time) error {
	base := now
	if start != nil {
		base = *start
	}
	if end.Before(base.Add(MinRunway)) {
		return ValidationError{Field: "end_date", Reason: "end date must be at least 24 hours after the start date"}
	}
	return nil
}

// TryReactivate attempts COMPLETED -> ACTIVE as a side effect. Failed checks
// leave the raffle untouched and are not reported.
func TryReactivate(r *domain.Raffle, stats domain.RaffleStatistics, now time.Time) bool {
	if r.Status != domain.RaffleCompleted {
		return false
	}
	if err := checkReactivation(r, stats, now); err != nil {
		return false
	}
	reactivate(r, now)
	return true
}

// CompleteEnded completes an ACTIVE or PAUSED raffle whose end date passed.
func CompleteEnded(r *domain.Raffle, now time.Time) bool {
	if r.Status != domain.RaffleActive && r.Status != domain.RafflePaused {
		return false
	}
	if now.Before(r.EndDate) {
		return false
	}
	complete(r, domain.CompletionEndDateReached, now)
	return true
}

func completeIfSoldOut(r *domain.Raffle, stats domain.RaffleStatistics, now time.Time) bool {
	if r.Status != domain.RaffleActive || stats.AvailableTickets > 0 {
		return false
	}
	complete(r, domain.CompletionAllTicketsSold, now)
	return true
}

func activate(r *domain.Raffle, now time.Time) error {
	if err := CheckRunway(r.EndDate, now); err != nil {
		return err
	}
	if r.StartDate == nil {
		start := now
		r.StartDate = &start
	}
	r.Status = domain.RaffleActive
	r.UpdatedAt = now
	return nil
}

// checkReactivation runs the reactivation checks in their fixed order; the
// winner check wins over the others.
func checkReactivation(r *domain.Raffle, stats domain.RaffleStatistics, now time.Time) error {
	if r.HasWinner() {
		return errWinnerBlocksReactivation
	}
	if err := CheckRunway(r.EndDate, now); err != nil {
		return err
	}
	if stats.AvailableTickets <= 0 {
		return errNoAvailableTickets
	}
	return nil
}

func reactivate(r *domain.Raffle, now time.Time) {
	r.Status = domain.RaffleActive
	r.CompletionReason = nil
	r.CompletedAt = nil
	r.UpdatedAt = now
}

func complete(r *domain.Raffle, reason domain.CompletionReason, now time.Time) {
	at := now
	r.Status = domain.RaffleCompleted
	r.CompletionReason = &reason
	r.CompletedAt = &at
	r.UpdatedAt = now
}

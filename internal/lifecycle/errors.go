package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

var (
	ErrUnsupportedTransition = errors.New("unsupported transition")
	ErrRaffleStatusMismatch  = errors.New("raffle status mismatch")
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("validation failed")
	ErrForbidden             = errors.New("forbidden")
	ErrTicketsUnavailable    = errors.New("tickets unavailable")
)

type UnsupportedTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e UnsupportedTransitionError) Error() string {
	return fmt.Sprintf("unsupported %s transition from %s to %s", e.Entity, e.From, e.To)
}

func (e UnsupportedTransitionError) Is(target error) bool {
	return target == ErrUnsupportedTransition
}

type RaffleStatusMismatchError struct {
	From     domain.OrderStatus
	To       domain.OrderStatus
	Actual   domain.RaffleStatus
	Expected domain.RaffleStatus
}

func (e RaffleStatusMismatchError) Error() string {
	return fmt.Sprintf(
		"cannot move order from %s to %s: raffle is %s, expected %s",
		e.From, e.To, e.Actual, e.Expected,
	)
}

func (e RaffleStatusMismatchError) Is(target error) bool {
	return target == ErrRaffleStatusMismatch
}

type NotFoundError struct {
	Resource string
	IDs      []int64
}

func (e NotFoundError) Error() string {
	if len(e.IDs) == 0 {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found: %v", e.Resource, e.IDs)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type ForbiddenError struct {
	Reason string
}

func (e ForbiddenError) Error() string {
	return e.Reason
}

func (e ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

type TicketsUnavailableError struct {
	TicketIDs []int64
}

func (e TicketsUnavailableError) Error() string {
	parts := make([]string, 0, len(e.TicketIDs))
	for _, id := range e.TicketIDs {
		parts = append(parts, fmt.Sprint(id))
	}
	return "tickets unavailable: " + strings.Join(parts, ",")
}

func (e TicketsUnavailableError) Is(target error) bool {
	return target == ErrTicketsUnavailable
}

var (
	errWinnerBlocksReactivation = ForbiddenError{Reason: "cannot reactivate a raffle that already has a winner"}
	errRevertToPending          = ValidationError{Field: "status", Reason: "a raffle cannot be reverted to PENDING"}
	errEndDateTooClose          = ValidationError{Field: "end_date", Reason: "end date must be more than 24 hours from now"}
	errNoAvailableTickets       = ValidationError{Field: "total_tickets", Reason: "raffle has no available tickets"}
)

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RaffleStatus string

const (
	RafflePending   RaffleStatus = "PENDING"
	RaffleActive    RaffleStatus = "ACTIVE"
	RafflePaused    RaffleStatus = "PAUSED"
	RaffleCompleted RaffleStatus = "COMPLETED"
)

func ParseRaffleStatus(s string) (RaffleStatus, bool) {
	switch st := RaffleStatus(s); st {
	case RafflePending, RaffleActive, RafflePaused, RaffleCompleted:
		return st, true
	}
	return "", false
}

type CompletionReason string

const (
	CompletionAllTicketsSold   CompletionReason = "ALL_TICKETS_SOLD"
	CompletionEndDateReached   CompletionReason = "END_DATE_REACHED"
	CompletionManuallyComplete CompletionReason = "MANUALLY_COMPLETED"
)

type Raffle struct {
	ID                int64
	Title             string
	Description       string
	Status            RaffleStatus
	TotalTickets      int
	FirstTicketNumber int
	TicketPrice       decimal.Decimal
	StartDate         *time.Time
	EndDate           time.Time
	CompletedAt       *time.Time
	CompletionReason  *CompletionReason
	WinningTicketID   *int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasWinner reports whether a winning ticket has been recorded.
func (r *Raffle) HasWinner() bool {
	return r.WinningTicketID != nil
}

// RaffleStatistics holds the per-raffle aggregates. Reserved tickets are not
// stored: they are TotalTickets - AvailableTickets - SoldTickets.
type RaffleStatistics struct {
	RaffleID          int64
	AvailableTickets  int
	SoldTickets       int
	PendingOrders     int
	CompletedOrders   int
	CancelledOrders   int
	UnpaidOrders      int
	RefundedOrders    int
	TotalOrders       int
	Participants      int
	Revenue           decimal.Decimal
	AverageOrderValue decimal.Decimal
	FirstSaleDate     *time.Time
	LastSaleDate      *time.Time
}

// RaffleSummary is the read model served to clients.
type RaffleSummary struct {
	Raffle     Raffle
	Statistics RaffleStatistics
	// ReservedTickets are held by carts or pending orders. Together with
	// available and sold tickets they add up to the raffle's total.
	ReservedTickets int
}

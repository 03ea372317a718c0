package lifecycle

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

type StatsEventKind string

const (
	StatsOrderCreated    StatsEventKind = "order_created"
	StatsOrderCompleted  StatsEventKind = "order_completed"
	StatsOrderCancelled  StatsEventKind = "order_cancelled"
	StatsOrderUnpaid     StatsEventKind = "order_unpaid"
	StatsOrderRefunded   StatsEventKind = "order_refunded"
	StatsTicketsReserved StatsEventKind = "tickets_reserved"
	StatsTicketsReleased StatsEventKind = "tickets_released"
	StatsTicketsMinted   StatsEventKind = "tickets_minted"
	StatsTicketsRemoved  StatsEventKind = "tickets_removed"
)

// StatsEvent is one delta applied to a raffle's statistics.
type StatsEvent struct {
	Kind           StatsEventKind
	Tickets        int
	Total          decimal.Decimal
	NewParticipant bool
	At             time.Time
}

// ApplyStats returns the statistics after ev. It never mutates s.
func ApplyStats(s domain.RaffleStatistics, ev StatsEvent) domain.RaffleStatistics {
	switch ev.Kind {
	case StatsOrderCreated:
		s.PendingOrders++
		s.TotalOrders++
		if ev.NewParticipant {
			s.Participants++
		}
	case StatsOrderCompleted:
		s.PendingOrders--
		s.CompletedOrders++
		s.SoldTickets += ev.Tickets
		s.Revenue = s.Revenue.Add(ev.Total)
		at := ev.At
		if s.FirstSaleDate == nil {
			s.FirstSaleDate = &at
		}
		s.LastSaleDate = &at
	case StatsOrderCancelled:
		s.PendingOrders--
		s.CancelledOrders++
		s.AvailableTickets += ev.Tickets
	case StatsOrderUnpaid:
		s.PendingOrders--
		s.UnpaidOrders++
		s.AvailableTickets += ev.Tickets
	case StatsOrderRefunded:
		s.CompletedOrders--
		s.RefundedOrders++
		s.SoldTickets -= ev.Tickets
		s.AvailableTickets += ev.Tickets
		s.Revenue = s.Revenue.Sub(ev.Total)
	case StatsTicketsReserved, StatsTicketsRemoved:
		s.AvailableTickets -= ev.Tickets
	case StatsTicketsReleased, StatsTicketsMinted:
		s.AvailableTickets += ev.Tickets
	}

	return clampStats(s)
}

func clampStats(s domain.RaffleStatistics) domain.RaffleStatistics {
	for _, c := range []*int{
		&s.AvailableTickets,
		&s.SoldTickets,
		&s.PendingOrders,
		&s.CompletedOrders,
		&s.CancelledOrders,
		&s.UnpaidOrders,
		&s.RefundedOrders,
		&s.TotalOrders,
		&s.Participants,
	} {
		if *c < 0 {
			*c = 0
		}
	}

	if s.CompletedOrders == 0 {
		s.Revenue = decimal.Zero
		s.AverageOrderValue = decimal.Zero
		return s
	}

	if s.Revenue.IsNegative() {
		s.Revenue = decimal.Zero
	}
	s.AverageOrderValue = s.Revenue.Div(decimal.NewFromInt(int64(s.CompletedOrders))).Round(2)

	return s
}

// NewStatistics returns the statistics of a freshly minted raffle.
func NewStatistics(raffleID int64, totalTickets int) domain.RaffleStatistics {
	return domain.RaffleStatistics{
		RaffleID:          raffleID,
		AvailableTickets:  totalTickets,
		Revenue:           decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}
}

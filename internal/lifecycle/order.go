package lifecycle

import (
	"slices"
	"time"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

var orderTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderPending:   {domain.OrderCompleted, domain.OrderCancelled, domain.OrderUnpaid},
	domain.OrderCompleted: {domain.OrderRefunded},
}

// orderRaffleRequirement is checked only once the order edge itself is legal.
// Targets missing from the map have no raffle precondition.
var orderRaffleRequirement = map[domain.OrderStatus]domain.RaffleStatus{
	domain.OrderCompleted: domain.RaffleActive,
	domain.OrderCancelled: domain.RaffleActive,
	domain.OrderUnpaid:    domain.RaffleCompleted,
}

type orderEffect struct {
	tickets func([]*domain.Ticket)
	stats   StatsEventKind
	stamp   func(o *domain.Order, at time.Time)
}

var orderEffects = map[domain.OrderStatus]orderEffect{
	domain.OrderCompleted: {
		tickets: MarkSold,
		stats:   StatsOrderCompleted,
		stamp:   func(o *domain.Order, at time.Time) { o.CompletedAt = &at },
	},
	domain.OrderCancelled: {
		tickets: Release,
		stats:   StatsOrderCancelled,
		stamp:   func(o *domain.Order, at time.Time) { o.CancelledAt = &at },
	},
	domain.OrderUnpaid: {
		tickets: Release,
		stats:   StatsOrderUnpaid,
		stamp:   func(o *domain.Order, at time.Time) { o.UnpaidAt = &at },
	},
	domain.OrderRefunded: {
		tickets: Release,
		stats:   StatsOrderRefunded,
		stamp:   func(o *domain.Order, at time.Time) { o.RefundedAt = &at },
	},
}

func CanTransitionOrder(from, to domain.OrderStatus) bool {
	return slices.Contains(orderTransitions[from], to)
}

// CheckOrderTransition validates the order edge first and the raffle
// precondition second.
func CheckOrderTransition(from, to domain.OrderStatus, raffle domain.RaffleStatus) error {
	if !CanTransitionOrder(from, to) {
		return UnsupportedTransitionError{Entity: "order", From: string(from), To: string(to)}
	}
	if want, ok := orderRaffleRequirement[to]; ok && raffle != want {
		return RaffleStatusMismatchError{From: from, To: to, Actual: raffle, Expected: want}
	}
	return nil
}

// OrderAggregate is everything one order transition reads and writes.
// Tickets holds the live tickets loaded for the order's items.
type OrderAggregate struct {
	Raffle  *domain.Raffle
	Stats   *domain.RaffleStatistics
	Order   *domain.Order
	Tickets []*domain.Ticket
}

type TransitionResult struct {
	From          domain.OrderStatus
	To            domain.OrderStatus
	Tickets       []*domain.Ticket
	AutoCompleted bool
	Reactivated   bool
}

// RaffleChanged reports whether the raffle row needs to be written back.
func (r TransitionResult) RaffleChanged() bool {
	return r.AutoCompleted || r.Reactivated
}

// TransitionOrder runs one order transition: validate the edge, validate the
// raffle, resolve tickets, mutate tickets, reduce statistics, then evaluate
// raffle triggers. On error nothing in agg has been modified.
func TransitionOrder(agg OrderAggregate, to domain.OrderStatus, now time.Time) (TransitionResult, error) {
	from := agg.Order.Status

	if err := CheckOrderTransition(from, to, agg.Raffle.Status); err != nil {
		return TransitionResult{}, err
	}

	tickets, err := Resolve(agg.Order.Items, agg.Tickets)
	if err != nil {
		return TransitionResult{}, err
	}

	eff := orderEffects[to]
	eff.tickets(tickets)

	agg.Order.Status = to
	agg.Order.UpdatedAt = now
	eff.stamp(agg.Order, now)

	*agg.Stats = ApplyStats(*agg.Stats, StatsEvent{
		Kind:    eff.stats,
		Tickets: len(tickets),
		Total:   agg.Order.Payment.Total,
		At:      now,
	})

	res := TransitionResult{From: from, To: to, Tickets: tickets}

	switch to {
	case domain.OrderCompleted:
		res.AutoCompleted = completeIfSoldOut(agg.Raffle, *agg.Stats, now)
	case domain.OrderRefunded:
		res.Reactivated = TryReactivate(agg.Raffle, *agg.Stats, now)
	}

	return res, nil
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderUnpaid    OrderStatus = "UNPAID"
	OrderRefunded  OrderStatus = "REFUNDED"
)

// ParseOrderStatus reports false for anything outside the known statuses.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case OrderPending, OrderCompleted, OrderCancelled, OrderUnpaid, OrderRefunded:
		return st, true
	}
	return "", false
}

type Order struct {
	ID          uuid.UUID
	Reference   string
	RaffleID    int64
	CustomerID  int64
	Status      OrderStatus
	Comment     *string
	Items       []OrderItem
	Payment     Payment
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
	UnpaidAt    *time.Time
	RefundedAt  *time.Time
}

// TicketIDs returns the ticket ids referenced by the order items, in item order.
func (o *Order) TicketIDs() []int64 {
	ids := make([]int64, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.TicketID)
	}
	return ids
}

// OrderItem is an immutable snapshot of a purchased ticket.
type OrderItem struct {
	ID              int64
	OrderID         uuid.UUID
	TicketID        int64
	RaffleID        int64
	CustomerID      int64
	TicketNumber    string
	PriceAtPurchase decimal.Decimal
}

type OrderWithCustomer struct {
	Order    Order
	Customer Customer
}

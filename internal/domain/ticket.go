package domain

import (
	"strconv"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	TicketAvailable TicketStatus = "AVAILABLE"
	TicketReserved  TicketStatus = "RESERVED"
	TicketSold      TicketStatus = "SOLD"
)

type Ticket struct {
	ID         int64
	RaffleID   int64
	Number     string
	Status     TicketStatus
	CustomerID *int64
	CartID     *uuid.UUID
}

// NumberValue returns the numeric value of the ticket number, or -1 when the
// number is not a base-10 integer.
func (t Ticket) NumberValue() int64 {
	return TicketNumberValue(t.Number)
}

func TicketNumberValue(number string) int64 {
	v, err := strconv.ParseInt(number, 10, 64)
	if err != nil {
		return -1
	}
	return v
}

func FormatTicketNumber(n int64) string {
	return strconv.FormatInt(n, 10)
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

type CartStatus string

const (
	CartActive    CartStatus = "ACTIVE"
	CartConverted CartStatus = "CONVERTED"
	CartExpired   CartStatus = "EXPIRED"
)

type Cart struct {
	ID        uuid.UUID
	RaffleID  int64
	Status    CartStatus
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Open reports whether tickets may still be added to the cart or converted.
func (c *Cart) Open(now time.Time) bool {
	return c.Status == CartActive && now.Before(c.ExpiresAt)
}

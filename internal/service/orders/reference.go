package orders

import (
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/kirinyoku/raffle-go/internal/domain"
	"github.com/kirinyoku/raffle-go/internal/lifecycle"
)

const referencePrefix = "RF-"

// NewReference returns a sortable, human-quotable order reference.
func NewReference() string {
	return referencePrefix + ulid.Make().String()
}

// validateCustomer expects a normalized customer.
func validateCustomer(c domain.Customer) error {
	if strings.TrimSpace(c.FullName) == "" {
		return lifecycle.ValidationError{Field: "customer.full_name", Reason: "full name is required"}
	}

	if c.Email == nil && c.PhoneNumber == nil {
		return lifecycle.ValidationError{Field: "customer", Reason: "an email or a phone number is required"}
	}

	if c.Email != nil && !strings.Contains(*c.Email, "@") {
		return lifecycle.ValidationError{Field: "customer.email", Reason: "email is malformed"}
	}

	return nil
}

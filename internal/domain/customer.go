package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

type Customer struct {
	ID          int64
	FullName    string
	Email       *string
	PhonePrefix *string
	PhoneNumber *string
}

// Normalize returns a copy with the name NFC-normalized and whitespace
// collapsed, the email lower-cased, and empty optional fields cleared.
func (c Customer) Normalize() Customer {
	out := c
	out.FullName = strings.Join(strings.Fields(norm.NFC.String(c.FullName)), " ")
	out.Email = optionalTrimmed(c.Email, strings.ToLower)
	out.PhonePrefix = optionalTrimmed(c.PhonePrefix, digitsOnly)
	out.PhoneNumber = optionalTrimmed(c.PhoneNumber, digitsOnly)
	return out
}

func optionalTrimmed(v *string, f func(string) string) *string {
	if v == nil {
		return nil
	}
	s := f(strings.TrimSpace(*v))
	if s == "" {
		return nil
	}
	return &s
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

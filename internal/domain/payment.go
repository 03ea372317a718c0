package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is an open enumeration: values this build does not know
// decode to PaymentUnknown instead of failing.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentCard         PaymentMethod = "CARD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentPayPal       PaymentMethod = "PAYPAL"
	PaymentBizum        PaymentMethod = "BIZUM"
	PaymentUnknown      PaymentMethod = "UNKNOWN"
)

var knownPaymentMethods = map[PaymentMethod]struct{}{
	PaymentCash:         {},
	PaymentCard:         {},
	PaymentBankTransfer: {},
	PaymentPayPal:       {},
	PaymentBizum:        {},
}

func ParsePaymentMethod(s string) PaymentMethod {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := knownPaymentMethods[m]; ok {
		return m
	}
	return PaymentUnknown
}

func (m *PaymentMethod) UnmarshalText(b []byte) error {
	*m = ParsePaymentMethod(string(b))
	return nil
}

func (m *PaymentMethod) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*m = PaymentUnknown
		return nil
	}
	*m = ParsePaymentMethod(s)
	return nil
}

// Scan implements sql.Scanner.
func (m *PaymentMethod) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = PaymentUnknown
	case string:
		*m = ParsePaymentMethod(v)
	case []byte:
		*m = ParsePaymentMethod(string(v))
	default:
		return fmt.Errorf("domain.PaymentMethod.Scan: unsupported type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (m PaymentMethod) Value() (driver.Value, error) {
	return string(m), nil
}

type Payment struct {
	ID      int64
	OrderID uuid.UUID
	Total   decimal.Decimal
	Method  PaymentMethod
}

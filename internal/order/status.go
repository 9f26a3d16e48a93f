// Package order holds the order and payment-status types observed from the
// remote order service.
package order

import (
	"encoding/json"
	"strings"
)

// PaymentStatus is the payment state of an order as reported by the backend.
// The backend owns the value; clients only observe it.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

var knownStatuses = map[PaymentStatus]bool{
	PaymentPending:   false,
	PaymentPaid:      true,
	PaymentFailed:    true,
	PaymentCancelled: true,
	PaymentRefunded:  true,
}

// ParsePaymentStatus normalizes a raw backend value. Unknown values are kept
// verbatim (upper-cased) so callers can still display and log them.
func ParsePaymentStatus(raw string) PaymentStatus {
	return PaymentStatus(strings.ToUpper(strings.TrimSpace(raw)))
}

// IsTerminal reports whether no further status change is expected.
// Unknown values are non-terminal.
func (s PaymentStatus) IsTerminal() bool {
	return knownStatuses[s]
}

// IsKnown reports whether s is one of the enumerated statuses.
func (s PaymentStatus) IsKnown() bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsZero reports whether no status has been observed yet.
func (s PaymentStatus) IsZero() bool {
	return s == ""
}

func (s PaymentStatus) String() string {
	return string(s)
}

// UnmarshalJSON accepts any casing and surrounding whitespace.
func (s *PaymentStatus) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = ""
		return nil
	}
	*s = ParsePaymentStatus(*raw)
	return nil
}

// TerminalStatuses lists the statuses that end a verification session.
func TerminalStatuses() []PaymentStatus {
	return []PaymentStatus{PaymentPaid, PaymentFailed, PaymentCancelled, PaymentRefunded}
}

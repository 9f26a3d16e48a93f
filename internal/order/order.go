package order

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidID is returned when an order identifier is missing or malformed.
var ErrInvalidID = errors.New("invalid order id")

// ID is an externally assigned order identifier. The backend may encode it
// as a JSON string or number.
type ID string

// UnmarshalJSON accepts both `"42"` and `42`.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("order id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// ValidateID trims raw and checks that it can be used as a path segment.
// Placeholder values leaked from unresolved route params are rejected.
func ValidateID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", ErrInvalidID
	}
	switch strings.ToLower(id) {
	case "undefined", "null", "nan":
		return "", ErrInvalidID
	}
	if len(id) > 128 {
		return "", ErrInvalidID
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return "", ErrInvalidID
		}
	}
	return id, nil
}

// Event is the ticketed event an order belongs to.
type Event struct {
	ID        ID         `json:"id"`
	Title     string     `json:"title"`
	Venue     string     `json:"venue,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	ImageURL  string     `json:"imageUrl,omitempty"`
}

// UnmarshalJSON decodes what it can. Detail fields with an unexpected shape
// are left empty instead of failing the whole order.
func (e *Event) UnmarshalJSON(data []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	var decoded Event
	decodeInto(all, "id", &decoded.ID)
	decodeInto(all, "title", &decoded.Title)
	decodeInto(all, "venue", &decoded.Venue)
	decodeInto(all, "imageUrl", &decoded.ImageURL)
	if raw, ok := all["startDate"]; ok {
		decoded.StartDate, _ = decodeTime(raw)
	}
	*e = decoded
	return nil
}

// Order is the payload of GET /orders/{id}. Fields the client does not model,
// and detail fields whose shape it does not understand, are preserved raw in
// Extra.
type Order struct {
	ID            ID                         `json:"id"`
	PaymentStatus PaymentStatus              `json:"paymentStatus"`
	TotalAmount   json.Number                `json:"totalAmount,omitempty"`
	Currency      string                     `json:"currency,omitempty"`
	Quantity      int                        `json:"quantity,omitempty"`
	CreatedAt     *time.Time                 `json:"createdAt,omitempty"`
	Event         *Event                     `json:"event,omitempty"`
	Extra         map[string]json.RawMessage `json:"-"`
}

var orderFields = map[string]struct{}{
	"id": {}, "paymentStatus": {}, "totalAmount": {}, "currency": {},
	"quantity": {}, "createdAt": {}, "event": {},
}

// UnmarshalJSON decodes paymentStatus strictly since it drives verification.
// Every other field is best effort.
func (o *Order) UnmarshalJSON(data []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	var decoded Order
	if raw, ok := all["paymentStatus"]; ok {
		if err := json.Unmarshal(raw, &decoded.PaymentStatus); err != nil {
			return fmt.Errorf("paymentStatus: %w", err)
		}
		delete(all, "paymentStatus")
	}
	decodeInto(all, "id", &decoded.ID)
	decodeInto(all, "totalAmount", &decoded.TotalAmount)
	decodeInto(all, "currency", &decoded.Currency)
	decodeInto(all, "event", &decoded.Event)
	if raw, ok := all["quantity"]; ok {
		if n, ok := decodeInt(raw); ok {
			decoded.Quantity = n
			delete(all, "quantity")
		}
	}
	if raw, ok := all["createdAt"]; ok {
		if t, ok := decodeTime(raw); ok {
			decoded.CreatedAt = t
			delete(all, "createdAt")
		}
	}
	if len(all) > 0 {
		decoded.Extra = all
	}
	*o = decoded
	return nil
}

// MarshalJSON re-emits Extra alongside the known fields.
func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	base, err := json.Marshal(plain(o))
	if err != nil {
		return nil, err
	}
	if len(o.Extra) == 0 {
		return base, nil
	}
	merged := make(map[string]json.RawMessage, len(o.Extra)+len(orderFields))
	for k, v := range o.Extra {
		merged[k] = v
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(base, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// Snapshot is one observation of an order's payment status. Snapshots live
// in memory only and are replaced wholesale by the next observation.
type Snapshot struct {
	OrderID       string
	PaymentStatus PaymentStatus
	FetchedAt     time.Time
}

// NewSnapshot captures the status of o at fetchedAt.
func NewSnapshot(orderID string, o *Order, fetchedAt time.Time) Snapshot {
	snap := Snapshot{OrderID: orderID, FetchedAt: fetchedAt}
	if o != nil {
		snap.PaymentStatus = o.PaymentStatus
	}
	return snap
}

// Terminal reports whether the snapshot ends a verification session.
func (s Snapshot) Terminal() bool {
	return s.PaymentStatus.IsTerminal()
}

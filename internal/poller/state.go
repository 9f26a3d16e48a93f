package poller

import (
	"time"

	"github.com/creamcroissant/orderwatch/internal/order"
)

// Phase is a step of a verification session.
type Phase string

const (
	PhaseInitializing Phase = "INITIALIZING"
	PhaseChecking     Phase = "CHECKING"
	PhasePolling      Phase = "POLLING"
	PhaseSettled      Phase = "SETTLED"
	PhaseTimedOut     Phase = "TIMED_OUT"
	PhaseErrored      Phase = "ERRORED"
)

// Final reports whether the session has ended on its own.
func (p Phase) Final() bool {
	switch p {
	case PhaseSettled, PhaseTimedOut, PhaseErrored:
		return true
	}
	return false
}

// ErrorCode classifies the error slot.
type ErrorCode string

const (
	ErrorNone           ErrorCode = ""
	ErrorInvalidOrderID ErrorCode = "invalid_order_id"
	ErrorFetchFailed    ErrorCode = "fetch_failed"
	ErrorTimeout        ErrorCode = "timeout"
)

// User-facing messages for the error slot.
const (
	MessageInvalidOrderID = "Invalid Order ID. Please check the link and try again."
	MessageFetchFailed    = "Failed to verify payment status. Please try again later."
	MessageTimeout        = "Payment status verification timed out. Please check your orders page or contact support."
)

// State is the tuple a presentation layer renders. Empty Status and Error and
// a nil Details mean "not known yet".
type State struct {
	OrderID   string              `json:"orderId"`
	Phase     Phase               `json:"phase"`
	Loading   bool                `json:"loading"`
	Status    order.PaymentStatus `json:"status,omitempty"`
	Error     string              `json:"error,omitempty"`
	ErrorCode ErrorCode           `json:"errorCode,omitempty"`
	Details   *order.Order        `json:"details,omitempty"`
	Fetches   int                 `json:"fetches"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// Snapshot returns the last observation held by the state.
func (s State) Snapshot() order.Snapshot {
	return order.NewSnapshot(s.OrderID, s.Details, s.UpdatedAt)
}

// Paid reports whether the session settled with a successful payment.
func (s State) Paid() bool {
	return s.Phase == PhaseSettled && s.Status == order.PaymentPaid
}

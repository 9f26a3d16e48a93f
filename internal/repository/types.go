package repository

// Watch session outcomes.
const (
	OutcomeSettled   = "settled"
	OutcomeTimedOut  = "timed_out"
	OutcomeErrored   = "errored"
	OutcomeCancelled = "cancelled"
)

// WatchSession is the outcome of one verification session. Individual status
// snapshots are never stored, only how the session ended.
type WatchSession struct {
	ID              string
	Owner           string
	OrderID         string
	Outcome         string
	FinalStatus     string
	ErrorCode       string
	ErrorMessage    string
	Fetches         int
	RedirectArrival bool
	PaymentIntentID string
	StartedAt       int64
	FinishedAt      int64
}

// Package poller verifies an order's payment status by checking it
// immediately and then at a fixed cadence until the status is terminal or a
// timeout elapses.
//
// Each verification session is a Subscription driven by one goroutine, so
// "stop polling" and "timeout" are decided on a single sequential path.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/creamcroissant/orderwatch/internal/order"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultTimeout      = 2 * time.Minute
)

// Fetcher loads the current state of an order from the backend.
type Fetcher interface {
	GetOrderByID(ctx context.Context, id string) (*order.Order, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, id string) (*order.Order, error)

func (f FetcherFunc) GetOrderByID(ctx context.Context, id string) (*order.Order, error) {
	return f(ctx, id)
}

// Options configure a verification session.
type Options struct {
	// RedirectArrival runs one extra immediate check before the standard
	// initial check. Set when arriving from an external payment redirect.
	RedirectArrival bool
	// RedirectStatus and PaymentIntentID are informational redirect
	// parameters. A non-empty RedirectStatus implies RedirectArrival.
	RedirectStatus  string
	PaymentIntentID string

	PollInterval time.Duration
	Timeout      time.Duration

	// OnUpdate is called with a copy of the state after every write, from
	// the session goroutine (or from Start for an invalid order ID).
	OnUpdate func(State)

	Logger  *slog.Logger
	Metrics *Metrics
}

// withDefaults fills zero fields of o from d.
func (o Options) withDefaults(d Options) Options {
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.OnUpdate == nil {
		o.OnUpdate = d.OnUpdate
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	if o.Metrics == nil {
		o.Metrics = d.Metrics
	}
	return o
}

func (o Options) normalize() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	o.RedirectStatus = strings.TrimSpace(o.RedirectStatus)
	if o.RedirectStatus != "" {
		o.RedirectArrival = true
	}
	return o
}

// Subscription is one verification session. Its methods are safe for
// concurrent use.
type Subscription struct {
	orderID string
	fetcher Fetcher
	opts    Options
	logger  *slog.Logger

	mu        sync.RWMutex
	state     State
	cancelled bool

	cancel context.CancelFunc
	done   chan struct{}
}

// Start begins verifying orderID. An invalid ID ends the session before it
// returns, without any fetch. Cancelling ctx has the same effect as Cancel.
// Start panics if f is nil and orderID is valid.
func Start(ctx context.Context, f Fetcher, orderID string, opts Options) *Subscription {
	if ctx == nil {
		ctx = context.Background()
	}
	opts = opts.normalize()
	runCtx, cancel := context.WithCancel(ctx)

	s := &Subscription{
		orderID: strings.TrimSpace(orderID),
		fetcher: f,
		opts:    opts,
		cancel:  cancel,
		done:    make(chan struct{}),
		state: State{
			OrderID:   strings.TrimSpace(orderID),
			Phase:     PhaseInitializing,
			Loading:   true,
			UpdatedAt: time.Now(),
		},
	}
	s.logger = opts.Logger.With("order_id", s.state.OrderID)
	opts.Metrics.sessionStarted()

	id, err := order.ValidateID(orderID)
	if err != nil {
		s.logger.Warn("order status check rejected", "error", err)
		s.update(func(st *State) {
			st.Phase = PhaseErrored
			st.Loading = false
			st.Error = MessageInvalidOrderID
			st.ErrorCode = ErrorInvalidOrderID
		})
		cancel()
		opts.Metrics.sessionEnded(PhaseErrored)
		close(s.done)
		return s
	}
	if f == nil {
		cancel()
		panic("poller: Start called with nil Fetcher")
	}
	s.orderID = id
	s.state.OrderID = id

	if opts.RedirectArrival {
		s.logger.Info("payment redirect arrival", "redirect_status", opts.RedirectStatus, "payment_intent", opts.PaymentIntentID)
	}

	go s.run(runCtx)
	return s
}

// Cancel stops the session. It is idempotent and may be called at any time,
// including from OnUpdate. No state write happens after Cancel returns.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
	s.cancel()
}

// Cancelled reports whether Cancel was called.
func (s *Subscription) Cancelled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancelled
}

// Done is closed once the session goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// State returns a copy of the latest state.
func (s *Subscription) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// OrderID returns the identifier being watched.
func (s *Subscription) OrderID() string {
	return s.orderID
}

// Wait blocks until the session ends or ctx is done.
func (s *Subscription) Wait(ctx context.Context) (State, error) {
	select {
	case <-s.done:
		return s.State(), nil
	case <-ctx.Done():
		return s.State(), ctx.Err()
	}
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer func() { s.opts.Metrics.sessionEnded(s.State().Phase) }()
	defer s.cancel()

	if s.opts.RedirectArrival {
		if s.check(ctx, ctx) {
			return
		}
	}
	if s.check(ctx, ctx) {
		return
	}

	// First check was non-terminal: arm the timeout and the interval.
	session, stop := context.WithTimeout(ctx, s.opts.Timeout)
	defer stop()
	ticker := backoff.NewTicker(backoff.WithContext(backoff.NewConstantBackOff(s.opts.PollInterval), session))
	defer ticker.Stop()

	// The ticker fires once right away; the initial check already covered it.
	if _, ok := <-ticker.C; !ok {
		s.expire(ctx)
		return
	}
	for {
		select {
		case <-session.Done():
			s.expire(ctx)
			return
		case _, ok := <-ticker.C:
			// C is closed once the session context ends.
			if !ok {
				s.expire(ctx)
				return
			}
			if s.check(ctx, session) {
				return
			}
		}
	}
}

// expire ends a session whose timeout context is done, unless the session
// itself was cancelled.
func (s *Subscription) expire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.timeout()
}

// check performs one fetch and reports whether the session is over.
func (s *Subscription) check(ctx, fetchCtx context.Context) bool {
	if !s.update(func(st *State) { st.Phase = PhaseChecking }) {
		return true
	}

	start := time.Now()
	o, err := s.fetcher.GetOrderByID(fetchCtx, s.orderID)
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		s.opts.Metrics.observeFetch("cancelled", elapsed)
		return true
	}
	if err == nil && o == nil {
		err = errors.New("empty order response")
	}
	if err != nil {
		if fetchCtx.Err() != nil {
			s.opts.Metrics.observeFetch("timeout", elapsed)
			s.timeout()
			return true
		}
		s.opts.Metrics.observeFetch("error", elapsed)
		s.fail(err)
		return true
	}
	s.opts.Metrics.observeFetch("ok", elapsed)

	status := o.PaymentStatus
	if !status.IsKnown() {
		s.logger.Warn("unrecognized payment status, continuing to poll", "status", status.String())
	}

	terminal := status.IsTerminal()
	written := s.update(func(st *State) {
		st.Fetches++
		st.Status = status
		st.Details = o
		if terminal {
			st.Phase = PhaseSettled
			st.Loading = false
		} else {
			st.Phase = PhasePolling
		}
	})
	if !written {
		return true
	}
	s.logger.Debug("order status checked", "status", status.String(), "terminal", terminal, "elapsed", elapsed)
	if terminal {
		s.logger.Info("order status settled", "status", status.String())
	}
	return terminal
}

// publicMessage is implemented by errors that carry a displayable backend
// message.
type publicMessage interface {
	PublicMessage() string
}

func (s *Subscription) fail(err error) {
	msg := MessageFetchFailed
	var pm publicMessage
	if errors.As(err, &pm) && strings.TrimSpace(pm.PublicMessage()) != "" {
		msg = pm.PublicMessage()
	}
	if s.update(func(st *State) {
		st.Fetches++
		st.Phase = PhaseErrored
		st.Loading = false
		st.Error = msg
		st.ErrorCode = ErrorFetchFailed
	}) {
		s.logger.Warn("order status check failed", "error", err)
	}
}

func (s *Subscription) timeout() {
	written := s.update(func(st *State) {
		st.Loading = false
		if st.Status.IsTerminal() {
			st.Phase = PhaseSettled
			return
		}
		st.Phase = PhaseTimedOut
		st.Error = MessageTimeout
		st.ErrorCode = ErrorTimeout
	})
	if written {
		s.logger.Info("order status verification timed out", "timeout", s.opts.Timeout)
	}
}

// update applies fn under the lock unless the subscription was cancelled,
// then notifies the observer. It reports whether the write happened.
func (s *Subscription) update(fn func(*State)) bool {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return false
	}
	fn(&s.state)
	s.state.UpdatedAt = time.Now()
	snapshot := s.state
	s.mu.Unlock()

	if s.opts.OnUpdate != nil {
		s.opts.OnUpdate(snapshot)
	}
	return true
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/creamcroissant/orderwatch/internal/cache"
	"github.com/creamcroissant/orderwatch/internal/order"
	"github.com/creamcroissant/orderwatch/internal/poller"
	"github.com/creamcroissant/orderwatch/internal/repository"
)

// WatchOptions carries the redirect parameters of a status request.
type WatchOptions struct {
	RedirectStatus  string
	PaymentIntentID string
}

// OrderWatchService runs at most one poller subscription per order and owner
// and remembers how recent sessions ended. The owner is derived from ctx with
// OwnerOf, so callers with different tokens never see each other's sessions.
type OrderWatchService interface {
	// Status returns the latest verification state of orderID, starting a
	// session when none is running or cached.
	Status(ctx context.Context, orderID string, opts WatchOptions) (poller.State, error)
	// Cancel stops the caller's running session for orderID. It reports
	// whether one was running.
	Cancel(ctx context.Context, orderID string) bool
	// Active lists the order IDs with a running session of the caller.
	Active(ctx context.Context) []string
	// History returns the caller's most recent finished sessions for orderID.
	History(ctx context.Context, orderID string, limit int) ([]*repository.WatchSession, error)
	// Close cancels every session and waits for their records to be queued.
	Close()
}

// SessionRecorder receives finished sessions. *async.SessionQueue satisfies it.
type SessionRecorder interface {
	Enqueue(session *repository.WatchSession)
}

// OrderWatchConfig wires an OrderWatchService.
type OrderWatchConfig struct {
	Fetcher      poller.Fetcher
	PollInterval time.Duration
	Timeout      time.Duration
	Metrics      *poller.Metrics
	Cache        cache.Store
	SettledTTL   time.Duration
	FailedTTL    time.Duration
	Sessions     repository.WatchSessionRepository
	Recorder     SessionRecorder
	Logger       *slog.Logger
}

type activeWatch struct {
	sessionID string
	owner     string
	orderID   string
	opts      WatchOptions
	startedAt time.Time
	sub       *poller.Subscription
}

type orderWatchService struct {
	fetcher  poller.Fetcher
	defaults poller.Options
	finished cache.Store
	settled  time.Duration
	failed   time.Duration
	sessions repository.WatchSessionRepository
	recorder SessionRecorder
	logger   *slog.Logger

	mu     sync.Mutex
	active map[string]*activeWatch
	closed bool
	wg     sync.WaitGroup
}

// NewOrderWatchService builds the service. Cache, Sessions and Recorder are
// optional.
func NewOrderWatchService(cfg OrderWatchConfig) OrderWatchService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := cfg.Cache
	if store == nil {
		store = cache.NewStore(cache.Options{})
	}
	return &orderWatchService{
		fetcher: cfg.Fetcher,
		defaults: poller.Options{
			PollInterval: cfg.PollInterval,
			Timeout:      cfg.Timeout,
			Logger:       logger,
			Metrics:      cfg.Metrics,
		},
		finished: store.Namespace("order_state"),
		settled:  cfg.SettledTTL,
		failed:   cfg.FailedTTL,
		sessions: cfg.Sessions,
		recorder: cfg.Recorder,
		logger:   logger,
		active:   make(map[string]*activeWatch),
	}
}

func (s *orderWatchService) Status(ctx context.Context, orderID string, opts WatchOptions) (poller.State, error) {
	id, err := order.ValidateID(orderID)
	if err != nil {
		// Resolved synchronously by the poller without any fetch.
		return poller.Start(ctx, s.fetcher, orderID, s.defaults).State(), nil
	}

	owner := OwnerOf(ctx)
	key := watchKey(owner, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return poller.State{}, ErrClosed
	}
	if st, ok := cache.Load[poller.State](ctx, s.finished, key); ok {
		return st, nil
	}
	if w, ok := s.active[key]; ok {
		return w.sub.State(), nil
	}

	popts := s.defaults
	popts.RedirectStatus = opts.RedirectStatus
	popts.PaymentIntentID = opts.PaymentIntentID

	// The session outlives the request but keeps its values (bearer token).
	w := &activeWatch{
		sessionID: uuid.NewString(),
		owner:     owner,
		orderID:   id,
		opts:      opts,
		startedAt: time.Now(),
		sub:       poller.Start(context.WithoutCancel(ctx), s.fetcher, id, popts),
	}
	s.active[key] = w
	s.wg.Add(1)
	go s.finish(w)

	s.logger.Debug("watch session started", "order_id", id, "session_id", w.sessionID)
	return w.sub.State(), nil
}

// finish waits for a session to end, caches its final state and records it.
// Caching and leaving the active set happen under one lock so a concurrent
// Status never starts a duplicate session in between.
func (s *orderWatchService) finish(w *activeWatch) {
	defer s.wg.Done()
	<-w.sub.Done()
	st := w.sub.State()

	key := watchKey(w.owner, w.orderID)
	s.mu.Lock()
	if ttl := s.finalTTL(st.Phase); ttl > 0 {
		s.finished.Set(context.Background(), key, st, ttl)
	}
	if s.active[key] == w {
		delete(s.active, key)
	}
	s.mu.Unlock()

	session := newWatchSession(w, st, time.Now())
	s.logger.Info("watch session finished",
		"order_id", w.orderID,
		"session_id", w.sessionID,
		"outcome", session.Outcome,
		"status", st.Status,
		"fetches", st.Fetches,
	)
	if s.recorder != nil {
		s.recorder.Enqueue(session)
	}
}

func (s *orderWatchService) finalTTL(phase poller.Phase) time.Duration {
	switch phase {
	case poller.PhaseSettled:
		return s.settled
	case poller.PhaseTimedOut, poller.PhaseErrored:
		return s.failed
	}
	return 0
}

func (s *orderWatchService) Cancel(ctx context.Context, orderID string) bool {
	id, err := order.ValidateID(orderID)
	if err != nil {
		return false
	}
	key := watchKey(OwnerOf(ctx), id)
	s.mu.Lock()
	w, ok := s.active[key]
	if ok {
		delete(s.active, key)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	w.sub.Cancel()
	return true
}

func (s *orderWatchService) Active(ctx context.Context) []string {
	owner := OwnerOf(ctx)
	s.mu.Lock()
	ids := make([]string, 0)
	for _, w := range s.active {
		if w.owner == owner {
			ids = append(ids, w.orderID)
		}
	}
	s.mu.Unlock()
	slices.Sort(ids)
	return ids
}

func (s *orderWatchService) History(ctx context.Context, orderID string, limit int) ([]*repository.WatchSession, error) {
	if s.sessions == nil {
		return nil, ErrHistoryDisabled
	}
	id, err := order.ValidateID(orderID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.List(ctx, repository.WatchSessionFilter{
		Owner:   OwnerOf(ctx),
		OrderID: id,
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list watch sessions: %w", err)
	}
	return sessions, nil
}

func (s *orderWatchService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	running := make([]*activeWatch, 0, len(s.active))
	for _, w := range s.active {
		running = append(running, w)
	}
	s.mu.Unlock()

	for _, w := range running {
		w.sub.Cancel()
	}
	s.wg.Wait()
}

func newWatchSession(w *activeWatch, st poller.State, finishedAt time.Time) *repository.WatchSession {
	outcome := repository.OutcomeCancelled
	switch st.Phase {
	case poller.PhaseSettled:
		outcome = repository.OutcomeSettled
	case poller.PhaseTimedOut:
		outcome = repository.OutcomeTimedOut
	case poller.PhaseErrored:
		outcome = repository.OutcomeErrored
	}
	return &repository.WatchSession{
		ID:              w.sessionID,
		Owner:           w.owner,
		OrderID:         w.orderID,
		Outcome:         outcome,
		FinalStatus:     string(st.Status),
		ErrorCode:       string(st.ErrorCode),
		ErrorMessage:    st.Error,
		Fetches:         st.Fetches,
		RedirectArrival: w.opts.RedirectStatus != "",
		PaymentIntentID: w.opts.PaymentIntentID,
		StartedAt:       w.startedAt.Unix(),
		FinishedAt:      finishedAt.Unix(),
	}
}

func watchKey(owner, orderID string) string {
	return owner + "/" + orderID
}

package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/creamcroissant/orderwatch/internal/repository"
)

// SessionQueue buffers finished watch sessions before background ingestion,
// so a session ending never waits on the database.
type SessionQueue struct {
	mu       sync.Mutex
	sessions []*repository.WatchSession
	repo     repository.WatchSessionRepository
	logger   *slog.Logger
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

const (
	sessionWriteTimeout         = 3 * time.Second
	defaultSessionFlushInterval = 5 * time.Second
)

// NewSessionQueue constructs a buffered queue and starts its worker.
// A non-positive interval uses the default flush cadence.
func NewSessionQueue(repo repository.WatchSessionRepository, interval time.Duration, logger *slog.Logger) *SessionQueue {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = defaultSessionFlushInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &SessionQueue{
		repo:     repo,
		logger:   logger,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go q.worker()
	return q
}

// Enqueue appends a session for asynchronous persistence.
func (q *SessionQueue) Enqueue(session *repository.WatchSession) {
	if q == nil || session == nil {
		return
	}
	q.mu.Lock()
	q.sessions = append(q.sessions, session)
	q.mu.Unlock()
}

// Pending reports how many sessions are waiting to be written.
func (q *SessionQueue) Pending() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.sessions)
}

func (q *SessionQueue) worker() {
	defer close(q.done)
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			q.flush()
			return
		case <-ticker.C:
			q.flush()
		}
	}
}

// flush writes all pending sessions to the repository. Writes use their own
// deadline so the final flush during Stop still lands.
func (q *SessionQueue) flush() {
	q.mu.Lock()
	if len(q.sessions) == 0 {
		q.mu.Unlock()
		return
	}
	pending := q.sessions
	q.sessions = nil
	q.mu.Unlock()

	for _, session := range pending {
		writeCtx, cancel := context.WithTimeout(context.Background(), sessionWriteTimeout)
		err := q.repo.Create(writeCtx, session)
		cancel()
		if err != nil {
			q.logger.Error("failed to persist watch session", "error", err, "order_id", session.OrderID, "session_id", session.ID)
		}
	}
}

// Stop flushes what is buffered and waits for the worker to exit.
func (q *SessionQueue) Stop() {
	if q == nil {
		return
	}
	q.stopOnce.Do(q.cancel)
	<-q.done
}

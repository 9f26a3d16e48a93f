package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/orderwatch/internal/repository"
)

type memorySessions struct {
	mu      sync.Mutex
	created []*repository.WatchSession
	fail    bool
}

func (m *memorySessions) Create(_ context.Context, s *repository.WatchSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk full")
	}
	m.created = append(m.created, s)
	return nil
}

func (m *memorySessions) FindByID(context.Context, string) (*repository.WatchSession, error) {
	return nil, repository.ErrNotFound
}

func (m *memorySessions) List(context.Context, repository.WatchSessionFilter) ([]*repository.WatchSession, error) {
	return nil, nil
}

func (m *memorySessions) DeleteBefore(context.Context, int64) (int64, error) { return 0, nil }

func (m *memorySessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

func TestSessionQueue_FlushesOnInterval(t *testing.T) {
	repo := &memorySessions{}
	q := NewSessionQueue(repo, 10*time.Millisecond, nil)
	defer q.Stop()

	q.Enqueue(&repository.WatchSession{ID: "a", OrderID: "42"})
	q.Enqueue(nil)

	require.Eventually(t, func() bool { return repo.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, q.Pending())
}

func TestSessionQueue_StopFlushesRemaining(t *testing.T) {
	repo := &memorySessions{}
	q := NewSessionQueue(repo, time.Hour, nil)

	q.Enqueue(&repository.WatchSession{ID: "a"})
	q.Enqueue(&repository.WatchSession{ID: "b"})
	q.Stop()
	q.Stop()

	assert.Equal(t, 2, repo.count())
}

func TestSessionQueue_WriteErrorsDropEntries(t *testing.T) {
	repo := &memorySessions{fail: true}
	q := NewSessionQueue(repo, time.Hour, nil)
	q.Enqueue(&repository.WatchSession{ID: "a"})
	q.Stop()

	assert.Zero(t, repo.count())
	assert.Zero(t, q.Pending())
}

func TestSessionQueue_NilSafe(t *testing.T) {
	var q *SessionQueue
	q.Enqueue(&repository.WatchSession{})
	q.Stop()
	assert.Zero(t, q.Pending())
}

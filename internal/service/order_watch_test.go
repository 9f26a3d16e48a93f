package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/orderwatch/internal/cache"
	"github.com/creamcroissant/orderwatch/internal/order"
	"github.com/creamcroissant/orderwatch/internal/orderclient"
	"github.com/creamcroissant/orderwatch/internal/poller"
	"github.com/creamcroissant/orderwatch/internal/repository"
)

type statusFetcher struct {
	calls  atomic.Int32
	status order.PaymentStatus
	err    error
}

func (f *statusFetcher) GetOrderByID(_ context.Context, id string) (*order.Order, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &order.Order{ID: order.ID(id), PaymentStatus: f.status}, nil
}

type sessionLog struct {
	mu       sync.Mutex
	sessions []*repository.WatchSession
}

func (l *sessionLog) Enqueue(s *repository.WatchSession) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions = append(l.sessions, s)
}

func (l *sessionLog) all() []*repository.WatchSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*repository.WatchSession(nil), l.sessions...)
}

type historyRepo struct {
	repository.WatchSessionRepository
	filter repository.WatchSessionFilter
}

func (r *historyRepo) List(_ context.Context, filter repository.WatchSessionFilter) ([]*repository.WatchSession, error) {
	r.filter = filter
	return []*repository.WatchSession{{ID: "s-1", OrderID: filter.OrderID}}, nil
}

func newTestService(t *testing.T, f poller.Fetcher, rec SessionRecorder) OrderWatchService {
	t.Helper()
	svc := NewOrderWatchService(OrderWatchConfig{
		Fetcher:      f,
		PollInterval: time.Hour,
		Timeout:      2 * time.Hour,
		Cache:        cache.NewStore(cache.Options{CleanupInterval: time.Minute}),
		SettledTTL:   time.Hour,
		FailedTTL:    50 * time.Millisecond,
		Recorder:     rec,
		Sessions:     &historyRepo{},
	})
	t.Cleanup(svc.Close)
	return svc
}

func waitIdle(t *testing.T, svc OrderWatchService, ctx context.Context) {
	t.Helper()
	require.Eventually(t, func() bool { return len(svc.Active(ctx)) == 0 }, time.Second, 5*time.Millisecond)
}

func TestStatus_SettledIsCached(t *testing.T) {
	f := &statusFetcher{status: order.PaymentPaid}
	rec := &sessionLog{}
	svc := newTestService(t, f, rec)
	ctx := context.Background()

	_, err := svc.Status(ctx, "42", WatchOptions{RedirectStatus: "succeeded", PaymentIntentID: "pi_1"})
	require.NoError(t, err)
	waitIdle(t, svc, ctx)

	st, err := svc.Status(ctx, "42", WatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, poller.PhaseSettled, st.Phase)
	assert.True(t, st.Paid())
	assert.False(t, st.Loading)

	// The redirect check already saw PAID, so no second fetch ran.
	assert.EqualValues(t, 1, f.calls.Load())

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)
	session := rec.all()[0]
	assert.Equal(t, repository.OutcomeSettled, session.Outcome)
	assert.Equal(t, "PAID", session.FinalStatus)
	assert.True(t, session.RedirectArrival)
	assert.Equal(t, "pi_1", session.PaymentIntentID)
	assert.NotEmpty(t, session.ID)
}

func TestStatus_OneSessionPerOrder(t *testing.T) {
	f := &statusFetcher{status: order.PaymentPending}
	svc := newTestService(t, f, nil)
	ctx := context.Background()

	for range 5 {
		_, err := svc.Status(ctx, "42", WatchOptions{})
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"42"}, svc.Active(ctx))

	time.Sleep(30 * time.Millisecond)
	assert.EqualValues(t, 1, f.calls.Load())

	st, err := svc.Status(ctx, "42", WatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, poller.PhasePolling, st.Phase)
	assert.Equal(t, order.PaymentPending, st.Status)
	assert.True(t, st.Loading)
}

func TestStatus_FailedStateExpiresAndRestarts(t *testing.T) {
	f := &statusFetcher{err: errors.New("connection refused")}
	svc := newTestService(t, f, nil)
	ctx := context.Background()

	_, err := svc.Status(ctx, "42", WatchOptions{})
	require.NoError(t, err)
	waitIdle(t, svc, ctx)

	st, err := svc.Status(ctx, "42", WatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, poller.PhaseErrored, st.Phase)
	assert.Equal(t, poller.ErrorFetchFailed, st.ErrorCode)
	assert.EqualValues(t, 1, f.calls.Load())

	time.Sleep(80 * time.Millisecond)
	_, err = svc.Status(ctx, "42", WatchOptions{})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestStatus_InvalidOrderID(t *testing.T) {
	f := &statusFetcher{status: order.PaymentPaid}
	svc := newTestService(t, f, nil)

	st, err := svc.Status(context.Background(), "undefined", WatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, poller.PhaseErrored, st.Phase)
	assert.Equal(t, poller.ErrorInvalidOrderID, st.ErrorCode)
	assert.Equal(t, poller.MessageInvalidOrderID, st.Error)
	assert.Zero(t, f.calls.Load())
	assert.Empty(t, svc.Active(context.Background()))
}

func TestCancel(t *testing.T) {
	f := &statusFetcher{status: order.PaymentPending}
	rec := &sessionLog{}
	svc := newTestService(t, f, rec)

	ctx := context.Background()

	_, err := svc.Status(ctx, "42", WatchOptions{})
	require.NoError(t, err)

	assert.True(t, svc.Cancel(ctx, "42"))
	assert.False(t, svc.Cancel(ctx, "42"))
	assert.False(t, svc.Cancel(ctx, "7"))
	assert.Empty(t, svc.Active(ctx))

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, repository.OutcomeCancelled, rec.all()[0].Outcome)
}

func TestClose(t *testing.T) {
	f := &statusFetcher{status: order.PaymentPending}
	rec := &sessionLog{}
	svc := newTestService(t, f, rec)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		_, err := svc.Status(ctx, id, WatchOptions{})
		require.NoError(t, err)
	}
	svc.Close()

	assert.Len(t, rec.all(), 3)
	_, err := svc.Status(ctx, "4", WatchOptions{})
	assert.ErrorIs(t, err, ErrClosed)
	svc.Close()
}

func TestHistory(t *testing.T) {
	repo := &historyRepo{}
	svc := NewOrderWatchService(OrderWatchConfig{Fetcher: &statusFetcher{}, Sessions: repo})
	defer svc.Close()

	got, err := svc.History(context.Background(), " 42 ", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, repository.WatchSessionFilter{Owner: "-|anonymous", OrderID: "42", Limit: 10}, repo.filter)

	_, err = svc.History(WithCaller(context.Background(), "sub:alice"), "42", 10)
	require.NoError(t, err)
	assert.Equal(t, "sub:alice|anonymous", repo.filter.Owner)

	_, err = svc.History(context.Background(), "", 10)
	assert.ErrorIs(t, err, order.ErrInvalidID)

	noHistory := NewOrderWatchService(OrderWatchConfig{Fetcher: &statusFetcher{}})
	defer noHistory.Close()
	_, err = noHistory.History(context.Background(), "42", 10)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}

// ownerFetcher answers like an order service that authorizes per token:
// only alice may read order 42.
type ownerFetcher struct {
	calls atomic.Int32
}

func (f *ownerFetcher) GetOrderByID(ctx context.Context, id string) (*order.Order, error) {
	f.calls.Add(1)
	if orderclient.TokenFromContext(ctx) != "alice" {
		return nil, &orderclient.APIError{StatusCode: 403, Message: "Forbidden"}
	}
	return &order.Order{ID: order.ID(id), PaymentStatus: order.PaymentPaid, Currency: "alice-secret"}, nil
}

func TestStatus_SessionsScopedByOwner(t *testing.T) {
	f := &ownerFetcher{}
	rec := &sessionLog{}
	svc := NewOrderWatchService(OrderWatchConfig{
		Fetcher:      f,
		PollInterval: time.Hour,
		Timeout:      2 * time.Hour,
		SettledTTL:   time.Hour,
		FailedTTL:    time.Hour,
		Recorder:     rec,
	})
	t.Cleanup(svc.Close)
	alice := orderclient.WithToken(context.Background(), "alice")
	mallory := orderclient.WithToken(context.Background(), "mallory")
	anonymous := context.Background()

	_, err := svc.Status(alice, "42", WatchOptions{})
	require.NoError(t, err)
	waitIdle(t, svc, alice)

	st, err := svc.Status(alice, "42", WatchOptions{})
	require.NoError(t, err)
	require.True(t, st.Paid())
	require.NotNil(t, st.Details)
	assert.Equal(t, "alice-secret", st.Details.Currency)

	for _, ctx := range []context.Context{mallory, anonymous} {
		_, err := svc.Status(ctx, "42", WatchOptions{})
		require.NoError(t, err)
		waitIdle(t, svc, ctx)

		st, err := svc.Status(ctx, "42", WatchOptions{})
		require.NoError(t, err)
		assert.Equal(t, poller.PhaseErrored, st.Phase)
		assert.Nil(t, st.Details)
		assert.Equal(t, "Forbidden", st.Error)
	}
	assert.EqualValues(t, 3, f.calls.Load())

	// alice still gets her own cached result.
	st, err = svc.Status(alice, "42", WatchOptions{})
	require.NoError(t, err)
	assert.True(t, st.Paid())
	assert.EqualValues(t, 3, f.calls.Load())

	require.Eventually(t, func() bool { return len(rec.all()) == 3 }, time.Second, 5*time.Millisecond)
	owners := map[string]bool{}
	for _, s := range rec.all() {
		owners[s.Owner] = true
	}
	assert.Len(t, owners, 3)
}

func TestCancelAndActive_ScopedByOwner(t *testing.T) {
	f := &statusFetcher{status: order.PaymentPending}
	svc := newTestService(t, f, nil)
	alice := WithCaller(context.Background(), "sub:alice")
	bob := WithCaller(context.Background(), "sub:bob")

	_, err := svc.Status(alice, "42", WatchOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"42"}, svc.Active(alice))
	assert.Empty(t, svc.Active(bob))
	assert.False(t, svc.Cancel(bob, "42"))
	assert.Equal(t, []string{"42"}, svc.Active(alice))
	assert.True(t, svc.Cancel(alice, "42"))
}

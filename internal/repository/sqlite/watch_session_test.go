package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/orderwatch/internal/bootstrap"
	"github.com/creamcroissant/orderwatch/internal/migrations"
	"github.com/creamcroissant/orderwatch/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := bootstrap.OpenSQLite(filepath.Join(t.TempDir(), "orderwatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(db))
	return NewStore(db)
}

func TestWatchSessions_CreateAndFind(t *testing.T) {
	repo := newTestStore(t).WatchSessions()
	ctx := context.Background()

	in := &repository.WatchSession{
		ID:              "s-1",
		Owner:           "sub:alice|anonymous",
		OrderID:         "42",
		Outcome:         repository.OutcomeSettled,
		FinalStatus:     "PAID",
		Fetches:         3,
		RedirectArrival: true,
		PaymentIntentID: "pi_123",
		StartedAt:       100,
		FinishedAt:      109,
	}
	require.NoError(t, repo.Create(ctx, in))

	got, err := repo.FindByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, in, got)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWatchSessions_ListAndDelete(t *testing.T) {
	repo := newTestStore(t).WatchSessions()
	ctx := context.Background()

	seed := []*repository.WatchSession{
		{ID: "a", Owner: "alice", OrderID: "42", Outcome: repository.OutcomeTimedOut, FinishedAt: 10},
		{ID: "b", Owner: "alice", OrderID: "42", Outcome: repository.OutcomeSettled, FinalStatus: "PAID", FinishedAt: 20},
		{ID: "c", Owner: "bob", OrderID: "7", Outcome: repository.OutcomeErrored, FinishedAt: 30},
	}
	for _, s := range seed {
		require.NoError(t, repo.Create(ctx, s))
	}

	byOrder, err := repo.List(ctx, repository.WatchSessionFilter{OrderID: "42"})
	require.NoError(t, err)
	require.Len(t, byOrder, 2)
	assert.Equal(t, "b", byOrder[0].ID, "newest first")

	bob, err := repo.List(ctx, repository.WatchSessionFilter{Owner: "bob", OrderID: "42"})
	require.NoError(t, err)
	assert.Empty(t, bob)

	aliceOrder, err := repo.List(ctx, repository.WatchSessionFilter{Owner: "alice", OrderID: "42"})
	require.NoError(t, err)
	assert.Len(t, aliceOrder, 2)

	settled, err := repo.List(ctx, repository.WatchSessionFilter{Outcome: repository.OutcomeSettled})
	require.NoError(t, err)
	require.Len(t, settled, 1)

	limited, err := repo.List(ctx, repository.WatchSessionFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "b", limited[0].ID)

	deleted, err := repo.DeleteBefore(ctx, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	rest, err := repo.List(ctx, repository.WatchSessionFilter{})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "c", rest[0].ID)
}

package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/orderwatch/internal/order"
	"github.com/creamcroissant/orderwatch/internal/poller"
)

func paidFetcher() poller.Fetcher {
	return poller.FetcherFunc(func(_ context.Context, id string) (*order.Order, error) {
		return &order.Order{
			ID:            order.ID(id),
			PaymentStatus: order.PaymentPaid,
			Quantity:      2,
			Event:         &order.Event{Title: "Summer Fest", Venue: "Main Arena"},
		}, nil
	})
}

// drive runs cmd and feeds its message back into the model until the
// session reports a final state.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for cmd != nil {
		msgCh := make(chan tea.Msg, 1)
		go func(c tea.Cmd) { msgCh <- c() }(cmd)
		select {
		case msg := <-msgCh:
			next, nextCmd := m.Update(msg)
			m = next.(Model)
			cmd = nextCmd
		case <-deadline:
			t.Fatal("session did not finish")
		}
	}
	return m
}

func TestModel_RendersSettledSession(t *testing.T) {
	watcher := poller.NewWatcher(paidFetcher(), poller.Options{PollInterval: time.Hour, Timeout: 2 * time.Hour})
	m := NewModel(watcher, "42", poller.Options{})

	m = drive(t, m, m.start())

	st := m.State()
	assert.True(t, st.Paid())
	assert.Equal(t, 1, st.Fetches)

	view := m.View()
	assert.Contains(t, view, "Payment confirmed")
	assert.Contains(t, view, "Summer Fest")
	assert.Contains(t, view, "Main Arena")
}

func TestModel_InvalidOrder(t *testing.T) {
	watcher := poller.NewWatcher(paidFetcher(), poller.Options{})
	m := NewModel(watcher, "undefined", poller.Options{})

	m = drive(t, m, m.start())

	assert.Equal(t, poller.ErrorInvalidOrderID, m.State().ErrorCode)
	assert.Contains(t, m.View(), poller.MessageInvalidOrderID)
}

func TestModel_RestartDiscardsOldSession(t *testing.T) {
	watcher := poller.NewWatcher(paidFetcher(), poller.Options{PollInterval: time.Hour, Timeout: 2 * time.Hour})
	m := NewModel(watcher, "42", poller.Options{})
	m = drive(t, m, m.start())

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, 1, m.gen)
	assert.True(t, m.State().Loading)

	// A late message from the first session is ignored.
	stale, _ := m.Update(stateMsg{gen: 0, state: poller.State{Phase: poller.PhaseErrored, Error: "stale"}})
	assert.NotEqual(t, "stale", stale.(Model).State().Error)

	m = drive(t, m, cmd)
	assert.True(t, m.State().Paid())
	assert.Contains(t, m.View(), "Restarts")
}

func TestModel_Quit(t *testing.T) {
	watcher := poller.NewWatcher(paidFetcher(), poller.Options{})
	m := NewModel(watcher, "42", poller.Options{})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

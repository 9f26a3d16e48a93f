package poller

import (
	"context"
	"sync"
)

// Watcher owns at most one active Subscription. Starting a new watch cancels
// the previous one and waits for it to exit first, so a restart never leaves
// two sessions polling.
type Watcher struct {
	fetcher  Fetcher
	defaults Options

	mu      sync.Mutex
	current *Subscription
}

// NewWatcher returns a Watcher whose sessions inherit defaults.
func NewWatcher(f Fetcher, defaults Options) *Watcher {
	return &Watcher{fetcher: f, defaults: defaults}
}

// Watch cancels any running session and starts a new one for orderID.
// It must not be called from the OnUpdate callback of the session it replaces.
func (w *Watcher) Watch(ctx context.Context, orderID string, opts Options) *Subscription {
	w.mu.Lock()
	defer w.mu.Unlock()

	if prev := w.current; prev != nil {
		prev.Cancel()
		<-prev.Done()
	}
	w.current = Start(ctx, w.fetcher, orderID, opts.withDefaults(w.defaults))
	return w.current
}

// Current returns the most recent session, or nil.
func (w *Watcher) Current() *Subscription {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop cancels the current session, if any.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != nil {
		w.current.Cancel()
	}
}

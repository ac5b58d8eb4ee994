// Package resources implements the shared resource tracker: a registry
// that lets disconnect() close every socket, closeable and background task
// the agent currently owns in one atomic sweep.
package resources

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tracker holds two registries: closers (sockets and any other io.Closer)
// and background task cancel functions. CloseAll is safe to call concurrently
// with registration; a registration that loses the race with a concurrent
// CloseAll is simply never closed by the tracker — acceptable per spec.md
// §4.G, since the resource's own owner closes it on exit regardless.
type Tracker struct {
	mu    sync.Mutex
	log   *zap.Logger
	conns map[string]io.Closer
	tasks map[string]context.CancelFunc
}

// New builds an empty Tracker.
func New(log *zap.Logger) *Tracker {
	return &Tracker{
		log:   log,
		conns: make(map[string]io.Closer),
		tasks: make(map[string]context.CancelFunc),
	}
}

// RegisterCloser registers c under key and returns key for later
// Unregister. An empty key is replaced with a fresh UUID.
func (t *Tracker) RegisterCloser(key string, c io.Closer) string {
	if key == "" {
		key = uuid.NewString()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[key] = c
	return key
}

// UnregisterCloser removes key from the tracked set without closing it —
// used once a socket or closeable has already shut itself down normally.
func (t *Tracker) UnregisterCloser(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, key)
}

// RegisterTask registers a cancel function for a background task and
// returns a key for later UnregisterTask.
func (t *Tracker) RegisterTask(cancel context.CancelFunc) string {
	key := uuid.NewString()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks[key] = cancel
	return key
}

// UnregisterTask removes key from the tracked task set.
func (t *Tracker) UnregisterTask(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tasks, key)
}

// Count returns the number of currently tracked closers and tasks, for
// tests asserting that CloseAll leaves the tracker empty.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns) + len(t.tasks)
}

// CloseAll atomically snapshots and clears every tracked resource, then
// best-effort closes every closer and cancels every task. A close error is
// logged, not returned: disconnect() must not abort partway through.
func (t *Tracker) CloseAll() {
	t.mu.Lock()
	conns := t.conns
	tasks := t.tasks
	t.conns = make(map[string]io.Closer)
	t.tasks = make(map[string]context.CancelFunc)
	t.mu.Unlock()

	for key, c := range conns {
		if err := c.Close(); err != nil && t.log != nil {
			t.log.Debug("closing tracked resource", zap.String("key", key), zap.Error(err))
		}
	}
	for _, cancel := range tasks {
		cancel()
	}
}

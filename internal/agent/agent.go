// Package agent wires together the Config Store, Resource Tracker, Stats
// Registry and Control-Channel Client into the single long-lived object the
// CLI and admin API both hold a reference to (spec.md §4.I's Design Notes).
package agent

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/me-sharif-hasan/tunneller/internal/config"
	"github.com/me-sharif-hasan/tunneller/internal/control"
	"github.com/me-sharif-hasan/tunneller/internal/resources"
	"github.com/me-sharif-hasan/tunneller/internal/stats"
)

// Agent is the process-wide singleton. One Agent backs one running tunnel
// client; start/stop cycles reuse the same Config Store and Stats Registry
// but replace the Tracker and Client on every start, since a prior
// CloseAll/Run leaves them unusable for a fresh session.
type Agent struct {
	Log    *zap.Logger
	Config *config.Store
	Stats  *stats.Registry

	mu      sync.Mutex
	tracker *resources.Tracker
	client  *control.Client
	cancel  context.CancelFunc
	runDone chan struct{}
}

// New builds an Agent around an already-loaded Config Store.
func New(log *zap.Logger, store *config.Store) *Agent {
	return &Agent{
		Log:    log,
		Config: store,
		Stats:  stats.New(),
	}
}

// Running reports whether the agent holds a started control client, i.e.
// Start has run and Stop has not. A client whose Run loop has already
// returned (for example after a failure with autoReconnect off) still
// counts as running until Stop.
func (a *Agent) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client != nil
}

// State returns the current control-session state, or control.StateIdle if
// no session has ever been started.
func (a *Agent) State() control.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return control.StateIdle
	}
	return a.client.State()
}

// Start spins up a fresh Resource Tracker and Control-Channel Client and
// runs it in the background. Start on an already-running Agent is a no-op.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.client != nil {
		a.mu.Unlock()
		return nil
	}

	tracker := resources.New(a.Log)
	dispatcher := &control.Dispatcher{Config: a.Config, Stats: a.Stats, Log: a.Log}
	client := &control.Client{Config: a.Config, Tracker: tracker, Dispatcher: dispatcher, Log: a.Log}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	a.tracker = tracker
	a.client = client
	a.cancel = cancel
	a.runDone = done
	a.mu.Unlock()

	go func() {
		defer close(done)
		if err := client.Run(runCtx); err != nil {
			a.Log.Info("control client stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop cancels the running control session and closes every tracked
// resource, then clears the Agent back to a restartable state.
func (a *Agent) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	tracker := a.tracker
	done := a.runDone
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if tracker != nil {
		tracker.CloseAll()
	}
	if done != nil {
		<-done
	}

	a.mu.Lock()
	a.client = nil
	a.tracker = nil
	a.cancel = nil
	a.runDone = nil
	a.mu.Unlock()
}

// Tracker returns the active Resource Tracker, or nil if the agent is not
// running.
func (a *Agent) Tracker() *resources.Tracker {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tracker
}

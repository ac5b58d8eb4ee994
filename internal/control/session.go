// Package control implements the Control-Channel Client: the long-lived
// connection to the relay's signal socket, its REGISTER/PING/CONNECT
// protocol, the reconnect state machine, and the per-CONNECT data-channel
// handoff to the Mode Dispatcher (spec.md §4.D-§4.F).
package control

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/me-sharif-hasan/tunneller/internal/config"
	"github.com/me-sharif-hasan/tunneller/internal/resources"
	"github.com/me-sharif-hasan/tunneller/pkg/constants"
	"github.com/me-sharif-hasan/tunneller/pkg/errors"
)

// State is one of the four control-session states from spec.md §4.D.
type State int

const (
	StateIdle State = iota
	StateDialing
	StateRegistered
	StateRetrying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateDialing:
		return "DIALING"
	case StateRegistered:
		return "REGISTERED"
	case StateRetrying:
		return "RETRYING"
	default:
		return "UNKNOWN"
	}
}

// Client owns the control channel's lifecycle: connect, register, read
// signal lines, dispatch CONNECTs, and reconnect with backoff on failure.
type Client struct {
	Config     *config.Store
	Tracker    *resources.Tracker
	Dispatcher *Dispatcher
	Log        *zap.Logger

	// DialContext is overridable for tests; defaults to net.Dialer.DialContext.
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)

	mu       sync.Mutex
	state    State
	failures int
}

func (c *Client) dial() func(context.Context, string, string) (net.Conn, error) {
	if c.DialContext != nil {
		return c.DialContext
	}
	var d net.Dialer
	return d.DialContext
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// State returns the session's current state, for the admin API's /status.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run drives the IDLE -> DIALING -> REGISTERED -> RETRYING loop until ctx is
// canceled or a non-reconnecting failure occurs (spec.md §4.D).
func (c *Client) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			c.setState(StateIdle)
			return ctx.Err()
		}

		c.setState(StateDialing)
		conn, err := c.connectAndRegister(ctx)
		if err != nil {
			c.Log.Warn("signal connect failed", zap.Error(err))
			if !c.Config.AutoReconnect() {
				c.setState(StateIdle)
				return err
			}
			if !c.retryAfterBackoff(ctx) {
				return ctx.Err()
			}
			continue
		}

		// Registered with the Tracker so Stop()'s CloseAll can close this
		// socket directly: canceling ctx does not interrupt the blocking
		// Read inside runSession's scanner, only closing the conn does
		// (spec.md §5, §8 property 6).
		key := c.Tracker.RegisterCloser("", conn)

		c.setState(StateRegistered)
		c.failures = 0
		sessionErr := c.runSession(ctx, conn)
		c.Tracker.UnregisterCloser(key)
		conn.Close()

		if sessionErr != nil {
			c.Log.Info("control session ended", zap.Error(sessionErr))
		}
		if !c.Config.AutoReconnect() {
			c.setState(StateIdle)
			return sessionErr
		}
		if !c.retryAfterBackoff(ctx) {
			return ctx.Err()
		}
	}
}

// connectAndRegister dials the relay's signal port and sends the REGISTER
// line. A successful write here is what moves DIALING -> REGISTERED.
func (c *Client) connectAndRegister(ctx context.Context) (net.Conn, error) {
	host, port := c.Config.SignalAddr()
	dialCtx, cancel := context.WithTimeout(ctx, constants.SignalDialTimeout)
	defer cancel()

	conn, err := c.dial()(dialCtx, "tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, errors.NewConnectionError(host, port, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(constants.SignalKeepAlivePeriod)
	}

	domain := c.Config.Domain()
	if _, err := fmt.Fprintf(conn, "REGISTER %s\n", domain); err != nil {
		conn.Close()
		return nil, errors.NewControlError("register", err)
	}
	return conn, nil
}

// runSession reads newline-delimited relay commands until the socket closes
// or errors, dispatching PING and CONNECT per spec.md §4.D/§4.E.
func (c *Client) runSession(ctx context.Context, conn net.Conn) error {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 1024), 64*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c.handleLine(ctx, conn, line)
	}
	if err := scanner.Err(); err != nil {
		return errors.NewControlError("read signal", err)
	}
	return nil
}

func (c *Client) handleLine(ctx context.Context, conn net.Conn, line string) {
	switch {
	case line == "PING":
		// No heartbeat event is fired here: there is no status/GUI listener
		// to consume one today. Add one alongside handleLine if a consumer
		// shows up.
		if _, err := fmt.Fprint(conn, "PONG\n"); err != nil {
			c.Log.Debug("failed writing PONG", zap.Error(err))
		}
	case strings.HasPrefix(line, "CONNECT "):
		id := strings.TrimSpace(strings.TrimPrefix(line, "CONNECT "))
		c.spawnDataChannel(ctx, id)
	default:
		c.Log.Debug("unrecognized signal line", zap.String("line", line))
	}
}

// spawnDataChannel dials a fresh data-channel socket for one CONNECT and
// hands it to the Mode Dispatcher, tracked so CloseAll can tear it down.
func (c *Client) spawnDataChannel(parent context.Context, id string) {
	if id == "" {
		id = uuid.NewString()
	}
	taskCtx, cancel := context.WithCancel(parent)
	key := c.Tracker.RegisterTask(cancel)

	go func() {
		defer c.Tracker.UnregisterTask(key)
		defer cancel()
		dialDataChannel(taskCtx, c, id)
	}()
}

// retryAfterBackoff sleeps the schedule from Backoff, interruptible by ctx.
// Returns false if ctx was canceled during the wait.
func (c *Client) retryAfterBackoff(ctx context.Context) bool {
	c.mu.Lock()
	c.failures++
	n := c.failures
	c.mu.Unlock()

	delay := Backoff(n)
	c.setState(StateRetrying)
	c.Log.Info("retrying signal connection", zap.Duration("delay", delay), zap.Int("attempt", n))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

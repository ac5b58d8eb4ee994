// Package constants defines magic numbers and default values shared across
// the tunnel agent's control channel, data channel and route handler.
package constants

import "time"

// Control-channel timeouts.
const (
	// SignalDialTimeout bounds the TCP dial to the relay's signal port.
	SignalDialTimeout = 10 * time.Second
	// SignalKeepAlivePeriod is the TCP keep-alive interval set on the signal socket.
	SignalKeepAlivePeriod = 30 * time.Second
	// HeartbeatTimeout is how long the UI waits after a PING before treating the
	// control channel as unresponsive.
	HeartbeatTimeout = 30 * time.Second
)

// Reconnect backoff, per §5: 3, 6, 12, 24, 48, 60, 60, ... seconds.
const (
	BackoffBase         = 3 * time.Second
	BackoffCap          = 60 * time.Second
	BackoffMaxDoublings = 5
)

// Data-channel and backend dial timeouts.
const (
	DataDialTimeout    = 10 * time.Second
	BackendDialTimeout = 10 * time.Second
)

// HTTP head parsing and pipe buffering.
const (
	// MaxHeadSize is the bound on the HTTP Head Parser's read buffer.
	MaxHeadSize = 8192
	// PipeCopyBufferSize is the per-direction copy buffer size for a shuffled stream.
	PipeCopyBufferSize = 8 * 1024
)

// StatsWindow is the sliding window used to compute requests-per-minute.
const StatsWindow = 60 * time.Second

// DefaultRulePriority is applied to a RoutingRule that does not set one explicitly.
const DefaultRulePriority = 100

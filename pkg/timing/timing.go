// Package timing measures how long a route handler spends opening a backend
// connection, for diagnostic logging alongside a requestId. The agent never
// parses a backend's response, so there is no time-to-first-byte to measure
// here — only the connect and (optional) TLS handshake legs.
package timing

import (
	"fmt"
	"time"
)

// Metrics captures the dial-side timing of one backend connection.
type Metrics struct {
	TCPConnect   time.Duration `json:"tcp_connect"`
	TLSHandshake time.Duration `json:"tls_handshake,omitempty"`
	Total        time.Duration `json:"total"`
}

// Timer measures the legs of a single backend dial.
type Timer struct {
	start    time.Time
	tcpStart time.Time
	tcpEnd   time.Time
	tlsStart time.Time
	tlsEnd   time.Time
}

// NewTimer starts a new dial timing session.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// StartTCP marks the beginning of the TCP dial.
func (t *Timer) StartTCP() { t.tcpStart = time.Now() }

// EndTCP marks the end of the TCP dial.
func (t *Timer) EndTCP() { t.tcpEnd = time.Now() }

// StartTLS marks the beginning of the TLS handshake.
func (t *Timer) StartTLS() { t.tlsStart = time.Now() }

// EndTLS marks the end of the TLS handshake.
func (t *Timer) EndTLS() { t.tlsEnd = time.Now() }

// Metrics returns the timings collected so far.
func (t *Timer) Metrics() Metrics {
	m := Metrics{Total: time.Since(t.start)}
	if !t.tcpStart.IsZero() && !t.tcpEnd.IsZero() {
		m.TCPConnect = t.tcpEnd.Sub(t.tcpStart)
	}
	if !t.tlsStart.IsZero() && !t.tlsEnd.IsZero() {
		m.TLSHandshake = t.tlsEnd.Sub(t.tlsStart)
	}
	return m
}

// String provides a human-readable representation of the metrics.
func (m Metrics) String() string {
	return fmt.Sprintf("tcp_connect=%v tls_handshake=%v total=%v", m.TCPConnect, m.TLSHandshake, m.Total)
}

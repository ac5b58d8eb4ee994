// Package tlsdial dials a routing rule's backend, optionally wrapping the
// connection in TLS with the agent's trust-all policy.
package tlsdial

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/me-sharif-hasan/tunneller/pkg/errors"
	"github.com/me-sharif-hasan/tunneller/pkg/timing"
	"github.com/me-sharif-hasan/tunneller/pkg/tlsconfig"
)

// Dial opens a TCP connection to host:port, and if useSSL wraps it in TLS
// using tlsconfig.BackendConfig (trust-all), forcing the handshake to
// complete before returning. The returned Metrics records the dial and
// (if applicable) handshake duration for diagnostic logging.
func Dial(ctx context.Context, host string, port int, useSSL bool, timeout func(context.Context, string, string) (net.Conn, error)) (net.Conn, timing.Metrics, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	timer := timing.NewTimer()

	dial := timeout
	if dial == nil {
		var d net.Dialer
		dial = d.DialContext
	}

	timer.StartTCP()
	conn, err := dial(ctx, "tcp", addr)
	timer.EndTCP()
	if err != nil {
		return nil, timer.Metrics(), errors.NewConnectionError(host, port, err)
	}

	if !useSSL {
		return conn, timer.Metrics(), nil
	}

	timer.StartTLS()
	tlsConn := tls.Client(conn, tlsconfig.BackendConfig(host))
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		timer.EndTLS()
		return nil, timer.Metrics(), errors.NewTLSError(host, port, err)
	}
	timer.EndTLS()
	return tlsConn, timer.Metrics(), nil
}

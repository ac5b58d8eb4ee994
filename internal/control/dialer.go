package control

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/me-sharif-hasan/tunneller/pkg/constants"
	"github.com/me-sharif-hasan/tunneller/pkg/errors"
)

// dialDataChannel opens one data-channel socket in response to a CONNECT,
// sends the data-channel REGISTER handshake, and hands the socket to the
// Mode Dispatcher (spec.md §4.E).
func dialDataChannel(ctx context.Context, c *Client, id string) {
	host, _ := c.Config.SignalAddr()
	port := c.Config.DataPort()
	domain := c.Config.Domain()

	dialCtx, cancel := context.WithTimeout(ctx, constants.DataDialTimeout)
	defer cancel()

	conn, err := c.dial()(dialCtx, "tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		c.Log.Warn("data-channel dial failed", zap.String("requestId", id), zap.Error(errors.NewConnectionError(host, port, err)))
		return
	}

	// Registered on creation so CloseAll can close this socket directly and
	// unblock whatever pipe read it's parked in mid-request (spec.md §4.D).
	key := c.Tracker.RegisterCloser("", conn)
	defer c.Tracker.UnregisterCloser(key)

	if _, err := fmt.Fprintf(conn, "REGISTER %s %s\n", domain, id); err != nil {
		c.Log.Warn("data-channel handshake failed", zap.String("requestId", id), zap.Error(err))
		conn.Close()
		return
	}

	c.dispatch(ctx, conn, id)
}

// dispatch exists so tests can stub the Dispatcher field without a live
// relay; it is the only place session code reaches into the Dispatcher.
func (c *Client) dispatch(ctx context.Context, conn net.Conn, id string) {
	c.Dispatcher.Dispatch(ctx, conn, id)
}

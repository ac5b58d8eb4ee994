package control

import (
	"context"
	"net"

	"go.uber.org/zap"

	"github.com/me-sharif-hasan/tunneller/internal/config"
	"github.com/me-sharif-hasan/tunneller/internal/httphead"
	"github.com/me-sharif-hasan/tunneller/internal/routehandler"
	"github.com/me-sharif-hasan/tunneller/internal/routing"
	"github.com/me-sharif-hasan/tunneller/internal/stats"
	"github.com/me-sharif-hasan/tunneller/pkg/constants"
	"github.com/me-sharif-hasan/tunneller/pkg/errors"
)

// Dispatcher chooses raw vs routing mode per data-channel connection and
// hands off accordingly (spec.md §4.F).
type Dispatcher struct {
	Config *config.Store
	Stats  *stats.Registry
	Log    *zap.Logger
}

// Dispatch is called once per CONNECT with the freshly-dialed data-channel
// socket. conn is closed by Dispatch in every path except the one where the
// Route Handler takes over the pipe shuffle (which itself closes conn).
func (d *Dispatcher) Dispatch(ctx context.Context, conn net.Conn, requestID string) {
	log := d.Log.With(zap.String("requestId", requestID))

	switch d.Config.Mode() {
	case config.ModeRaw:
		d.dispatchRaw(ctx, log, conn)
	default:
		d.dispatchRouting(ctx, log, conn, requestID)
	}
}

// rawPattern is the reserved stats key for RAW-mode traffic, which has no
// routing rule of its own.
const rawPattern = ""

func (d *Dispatcher) dispatchRaw(ctx context.Context, log *zap.Logger, conn net.Conn) {
	d.Stats.Start(rawPattern)
	defer d.Stats.Done(rawPattern)

	target := d.Config.RawTarget()
	backend, metrics, err := dialRaw(ctx, target.Host, target.Port)
	if err != nil {
		log.Warn("raw-mode backend dial failed", zap.Error(err))
		conn.Close()
		return
	}
	log.Debug("raw-mode backend connected", zap.String("timing", metrics))
	splice(log, backend, conn)
}

func (d *Dispatcher) dispatchRouting(ctx context.Context, log *zap.Logger, conn net.Conn, requestID string) {
	parsed, err := httphead.Parse(conn, constants.MaxHeadSize)
	if err != nil {
		log.Info("dropping request: head parse failed", zap.Error(err))
		conn.Close()
		return
	}

	snapshot := d.Config.Table().Snapshot()
	rule, ok := routing.LookupIn(snapshot, parsed.Path)
	if !ok {
		log.Info("no route found", zap.String("path", parsed.Path), zap.Error(errors.NewRoutingError(parsed.Path)))
		conn.Close()
		return
	}

	deps := routehandler.Deps{Stats: d.Stats, ForceConnectionClose: d.Config.ForceConnectionClose()}
	if err := routehandler.Handle(ctx, log, deps, rule, parsed, conn, requestID); err != nil {
		log.Debug("route handler ended", zap.Error(err))
	}
}

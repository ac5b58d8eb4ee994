package control

import (
	"context"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/me-sharif-hasan/tunneller/internal/tlsdial"
	"github.com/me-sharif-hasan/tunneller/pkg/constants"
)

// dialRaw connects to the raw-mode target. Raw mode never speaks TLS to the
// backend itself; the agent only relays bytes (spec.md §4.F).
func dialRaw(ctx context.Context, host string, port int) (net.Conn, string, error) {
	conn, metrics, err := tlsdial.Dial(ctx, host, port, false, nil)
	if err != nil {
		return nil, "", err
	}
	return conn, metrics.String(), nil
}

// splice shuffles bytes between two connections until either side closes,
// the same close-both-on-first-error discipline as the Route Handler uses.
func splice(log *zap.Logger, a, b net.Conn) {
	var wg sync.WaitGroup
	var once sync.Once
	closeBoth := func() {
		once.Do(func() {
			a.Close()
			b.Close()
		})
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := io.CopyBuffer(a, b, make([]byte, constants.PipeCopyBufferSize))
		if err != nil && err != io.EOF {
			log.Debug("raw splice ended", zap.Error(err))
		}
		closeBoth()
	}()
	go func() {
		defer wg.Done()
		_, err := io.CopyBuffer(b, a, make([]byte, constants.PipeCopyBufferSize))
		if err != nil && err != io.EOF {
			log.Debug("raw splice ended", zap.Error(err))
		}
		closeBoth()
	}()
	wg.Wait()
}

// Package routehandler implements the Route Handler: for one routed
// request, it opens the chosen rule's backend, forwards a (possibly
// rewritten) request head, and shuffles bytes in both directions until
// either side closes.
package routehandler

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/me-sharif-hasan/tunneller/internal/httphead"
	"github.com/me-sharif-hasan/tunneller/internal/routing"
	"github.com/me-sharif-hasan/tunneller/internal/stats"
	"github.com/me-sharif-hasan/tunneller/internal/tlsdial"
	"github.com/me-sharif-hasan/tunneller/pkg/constants"
	"github.com/me-sharif-hasan/tunneller/pkg/errors"
)

// Deps are the shared collaborators a Route Handler needs beyond the
// per-request arguments.
type Deps struct {
	Stats                *stats.Registry
	ForceConnectionClose bool
}

var copyBufferPool = sync.Pool{
	New: func() any { return make([]byte, constants.PipeCopyBufferSize) },
}

// Handle implements spec.md §4.C steps 1-10 for one request. dataConn is the
// data-channel socket back to the relay, already positioned just past the
// bytes Parse captured in ParseResult.RawBuffer.
func Handle(ctx context.Context, log *zap.Logger, deps Deps, rule routing.RoutingRule, parsed *httphead.ParseResult, dataConn net.Conn, requestID string) error {
	log = log.With(zap.String("requestId", requestID), zap.String("rule", rule.PathPattern))

	deps.Stats.Start(rule.PathPattern)
	defer deps.Stats.Done(rule.PathPattern)

	backend, metrics, err := tlsdial.Dial(ctx, rule.TargetHost, rule.TargetPort, rule.UseSSL, nil)
	if err != nil {
		log.Warn("backend dial failed", zap.Error(err))
		dataConn.Close()
		return err
	}
	log.Debug("backend connected", zap.String("timing", metrics.String()))
	defer backend.Close()

	if err := writeHead(backend, deps, rule, parsed); err != nil {
		log.Warn("failed writing request head to backend", zap.Error(err))
		dataConn.Close()
		return err
	}

	if body := parsed.Body(); len(body) > 0 {
		if _, err := backend.Write(body); err != nil {
			log.Warn("failed writing buffered body bytes to backend", zap.Error(err))
			dataConn.Close()
			return err
		}
	}

	return shuffle(log, backend, dataConn)
}

// writeHead emits the (possibly rewritten) request line and headers to
// backend, per spec.md §4.C steps 3-7.
func writeHead(backend net.Conn, deps Deps, rule routing.RoutingRule, parsed *httphead.ParseResult) error {
	effectivePath := rule.RewritePath(parsed.Path)

	var out []byte
	out = append(out, []byte(fmt.Sprintf("%s %s %s\r\n", parsed.Method, effectivePath, parsed.Version))...)

	originalHost, hadHost := parsed.Headers["host"]

	for _, line := range parsed.HeaderLines {
		name := httphead.HeaderName(line)
		if rule.ForwardHost && name == "host" {
			continue
		}
		if deps.ForceConnectionClose && (name == "connection" || name == "keep-alive" || name == "proxy-connection") {
			continue
		}
		out = append(out, []byte(line)...)
		out = append(out, '\r', '\n')
	}

	if rule.ForwardHost {
		out = append(out, []byte(fmt.Sprintf("Host: %s\r\n", rule.TargetHost))...)
		if hadHost {
			out = append(out, []byte(fmt.Sprintf("X-Forwarded-Host: %s\r\n", originalHost))...)
		}
	}
	if deps.ForceConnectionClose {
		out = append(out, []byte("Connection: close\r\n")...)
	}
	out = append(out, '\r', '\n')

	_, err := backend.Write(out)
	if err != nil {
		return errors.NewIOError("writing request head", err)
	}
	return nil
}

// shuffle starts the upstream and downstream pipes and waits for both to
// finish. The first error or EOF on either side closes both sockets, which
// unblocks the other pipe per spec.md §5.
func shuffle(log *zap.Logger, backend, dataConn net.Conn) error {
	var wg sync.WaitGroup
	var firstErr error
	var once sync.Once

	closeBoth := func(err error) {
		once.Do(func() {
			firstErr = err
			backend.Close()
			dataConn.Close()
		})
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		err := copyPipe(backend, dataConn) // downstream: data channel -> backend
		closeBoth(err)
	}()
	go func() {
		defer wg.Done()
		err := copyPipe(dataConn, backend) // upstream: backend -> data channel
		closeBoth(err)
	}()
	wg.Wait()

	if firstErr != nil && firstErr != io.EOF {
		log.Debug("pipe ended", zap.Error(firstErr))
	}
	return nil
}

// copyPipe copies from src to dst using a pooled buffer, flushing (writing)
// after every read, per spec.md §4.C step 9.
func copyPipe(dst io.Writer, src io.Reader) error {
	buf := copyBufferPool.Get().([]byte)
	defer copyBufferPool.Put(buf)

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
		}
		if readErr != nil {
			return readErr
		}
	}
}

// Package buffer provides a capped, in-memory byte accumulator used to read
// the first few kilobytes of an HTTP request head. Unlike a general-purpose
// buffer, it never spills to disk: a request head is bounded by design (see
// MaxHeadSize) and a head that does not fit is dropped rather than buffered
// further.
package buffer

import (
	"bytes"
	"sync"

	"github.com/me-sharif-hasan/tunneller/pkg/errors"
)

// DefaultLimit is the default cap applied when a Buffer is created with New(0).
const DefaultLimit = 8192

// ErrLimitExceeded is returned by Write once the buffer has reached its cap.
var ErrLimitExceeded = errors.NewValidationError("buffer limit exceeded")

// Buffer accumulates bytes up to a fixed limit. It is safe for concurrent
// Bytes/Len reads against a single writer goroutine.
type Buffer struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	limit  int
	closed bool
}

// New creates a Buffer capped at limit bytes. A non-positive limit falls back
// to DefaultLimit.
func New(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Buffer{limit: limit}
}

// Write appends p to the buffer. It returns ErrLimitExceeded, without storing
// any of p, once len(existing)+len(p) would exceed the configured limit.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, errors.NewIOError("write to closed buffer", nil)
	}
	if b.buf.Len()+len(p) > b.limit {
		return 0, ErrLimitExceeded
	}
	return b.buf.Write(p)
}

// Bytes returns the accumulated bytes. The returned slice aliases the
// buffer's storage and must not be retained across a Reset.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Bytes()
}

// Len returns the number of bytes currently stored.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

// Limit returns the configured cap.
func (b *Buffer) Limit() int {
	return b.limit
}

// Reset clears the buffer for reuse.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
	b.closed = false
}

// Close marks the buffer unusable for further writes. Idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

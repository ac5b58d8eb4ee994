// Package httphead reads and parses the head of an HTTP/1.x request off a
// byte stream. It reads until the first CRLF (the request line) and then
// keeps pulling bytes until the full header block is found, the stream
// ends, or the bounded buffer fills — never silently truncating a header
// block the Route Handler still needs to forward verbatim.
package httphead

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/http/httpguts"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/me-sharif-hasan/tunneller/pkg/buffer"
	"github.com/me-sharif-hasan/tunneller/pkg/errors"
)

var headerFold = cases.Lower(language.Und)

const headerBoundary = "\r\n\r\n"

// ParseResult holds the request line, headers, and the raw bytes read so
// far, per the Data Model.
type ParseResult struct {
	Method  string
	Path    string
	Version string

	// Headers maps lowercased header name to its last-seen value, used for
	// lookups (e.g. detecting an existing Host header).
	Headers map[string]string

	// HeaderLines holds each header line exactly as received (without the
	// trailing CRLF), in original order and casing, for verbatim
	// forwarding by the Route Handler.
	HeaderLines []string

	// RawBuffer is the full set of bytes read from the stream so far:
	// the request line, CRLF-terminated headers, and any body bytes the
	// read opportunistically pulled in past the header boundary.
	RawBuffer []byte

	// FirstLineEnd is the offset in RawBuffer just after the CRLF
	// terminating the request line.
	FirstLineEnd int

	// HeaderEnd is the offset of the "\r\n\r\n" boundary in RawBuffer, or
	// -1 if the stream ended before it was observed.
	HeaderEnd int
}

// Parse reads up to limit bytes from r, looking for a complete HTTP/1.x
// request line followed by the full header block. Returns an error for
// the three documented failure modes: the stream ends before any CRLF, the
// buffer fills before one is found, or the request line does not tokenize
// into exactly three parts.
func Parse(r io.Reader, limit int) (*ParseResult, error) {
	if limit <= 0 {
		limit = buffer.DefaultLimit
	}
	buf := buffer.New(limit)

	firstLineEnd := -1
	headerEnd := -1
	chunk := make([]byte, 512)

	for headerEnd < 0 {
		n, readErr := r.Read(chunk)
		if n > 0 {
			if _, werr := buf.Write(chunk[:n]); werr != nil {
				return nil, errors.NewProtocolError("request head exceeded buffer limit", werr)
			}
			raw := buf.Bytes()
			if firstLineEnd < 0 {
				if idx := bytes.Index(raw, []byte("\r\n")); idx >= 0 {
					firstLineEnd = idx + 2
				}
			}
			if firstLineEnd >= 0 {
				if idx := bytes.Index(raw, []byte(headerBoundary)); idx >= 0 {
					headerEnd = idx
				}
			}
		}
		if readErr != nil {
			break
		}
	}

	if firstLineEnd < 0 {
		return nil, errors.NewProtocolError("stream ended before a complete request line", nil)
	}

	raw := buf.Bytes()
	requestLine := strings.TrimSuffix(string(raw[:firstLineEnd]), "\r\n")
	parts := strings.Split(requestLine, " ")
	if len(parts) != 3 {
		return nil, errors.NewProtocolError("request line did not tokenize into method, path, version", nil)
	}

	result := &ParseResult{
		Method:       parts[0],
		Path:         parts[1],
		Version:      parts[2],
		Headers:      map[string]string{},
		RawBuffer:    raw,
		FirstLineEnd: firstLineEnd,
		HeaderEnd:    headerEnd,
	}

	headerBlock := raw[firstLineEnd:]
	if headerEnd >= 0 {
		headerBlock = raw[firstLineEnd:headerEnd]
	}
	parseHeaders(headerBlock, result)

	return result, nil
}

// parseHeaders extracts "Name: value" lines from block, recording the
// original line in HeaderLines and the folded name/value in Headers
// (last-wins on duplicates).
func parseHeaders(block []byte, into *ParseResult) {
	lines := bytes.Split(block, []byte("\r\n"))
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		idx := bytes.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		name := string(line[:idx])
		if !httpguts.ValidHeaderFieldName(name) {
			continue
		}
		value := strings.TrimSpace(string(line[idx+1:]))
		if !httpguts.ValidHeaderFieldValue(value) {
			continue
		}
		into.HeaderLines = append(into.HeaderLines, string(line))
		into.Headers[headerFold.String(name)] = value
	}
}

// HeaderName returns the lowercased header name from one of HeaderLines'
// entries, for the Route Handler's per-line skip filters.
func HeaderName(line string) string {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return ""
	}
	return headerFold.String(strings.TrimSpace(line[:idx]))
}

// Body returns the body bytes already captured past HeaderEnd (the part of
// RawBuffer the initial read pulled in opportunistically), or nil if
// HeaderEnd was not found.
func (p *ParseResult) Body() []byte {
	if p.HeaderEnd < 0 {
		return nil
	}
	start := p.HeaderEnd + len(headerBoundary)
	if start >= len(p.RawBuffer) {
		return nil
	}
	return p.RawBuffer[start:]
}

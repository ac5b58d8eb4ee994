package httphead

import (
	"errors"
	"strings"
	"testing"
)

func TestParseBasicRequestLine(t *testing.T) {
	raw := "GET /api/users HTTP/1.1\r\nHost: x\r\n\r\n"
	res, err := Parse(strings.NewReader(raw), 8192)
	if err != nil {
		t.Fatal(err)
	}
	if res.Method != "GET" || res.Path != "/api/users" || res.Version != "HTTP/1.1" {
		t.Fatalf("unexpected parse: %+v", res)
	}
	if res.Headers["host"] != "x" {
		t.Fatalf("expected host header, got %+v", res.Headers)
	}
	if res.HeaderEnd < 0 {
		t.Fatal("expected HeaderEnd to be found")
	}
	if string(res.RawBuffer) != raw {
		t.Fatalf("expected RawBuffer to be byte-equal to input, got %q", res.RawBuffer)
	}
}

func TestParseHeaderFoldingLastWins(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nX-Foo: one\r\nX-Foo: two\r\n\r\n"
	res, err := Parse(strings.NewReader(raw), 8192)
	if err != nil {
		t.Fatal(err)
	}
	if res.Headers["x-foo"] != "two" {
		t.Fatalf("expected duplicate header to fold to last value, got %q", res.Headers["x-foo"])
	}
}

func TestParseNoCRLFDropsRequest(t *testing.T) {
	_, err := Parse(strings.NewReader("GET / HTTP/1.1 no newline here"), 8192)
	if err == nil {
		t.Fatal("expected error when stream ends before a CRLF")
	}
}

func TestParseMalformedRequestLine(t *testing.T) {
	_, err := Parse(strings.NewReader("GET /\r\nHost: x\r\n\r\n"), 8192)
	if err == nil {
		t.Fatal("expected error for a request line that doesn't tokenize into 3 parts")
	}
}

func TestParseOversizedHeadDropped(t *testing.T) {
	huge := "GET / HTTP/1.1\r\n" + strings.Repeat("X-Pad: aaaaaaaaaa\r\n", 10000) + "\r\n"
	_, err := Parse(strings.NewReader(huge), 64)
	if err == nil {
		t.Fatal("expected the oversized head to be rejected")
	}
	var perr interface{ Error() string }
	if !errors.As(err, &perr) {
		t.Fatalf("expected a structured error, got %v", err)
	}
}

func TestParseHeaderEndMinusOneWhenNotYetObserved(t *testing.T) {
	// Only the request line plus a partial header has arrived.
	raw := "GET / HTTP/1.1\r\nHost: x"
	res, err := Parse(strings.NewReader(raw), 8192)
	if err != nil {
		t.Fatal(err)
	}
	if res.HeaderEnd != -1 {
		t.Fatalf("expected HeaderEnd -1 when \\r\\n\\r\\n hasn't arrived, got %d", res.HeaderEnd)
	}
}

package control

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/me-sharif-hasan/tunneller/internal/config"
	"github.com/me-sharif-hasan/tunneller/internal/stats"
)

func echoBackend(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				conn.Write(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()
	return ln.Addr().String()
}

func TestDispatchRawSplicesToTarget(t *testing.T) {
	addr := echoBackend(t)
	host, port := hostPortOf(t, addr)

	doc := config.Defaults()
	doc.Mode = config.ModeRaw
	doc.RawTargetHost = host
	doc.RawTargetPort = port
	store, err := config.New(doc)
	require.NoError(t, err)

	d := &Dispatcher{Config: store, Stats: stats.New(), Log: zap.NewNop()}
	clientSide, dataSide := net.Pipe()
	defer clientSide.Close()

	go d.Dispatch(context.Background(), dataSide, "req-raw")

	clientSide.SetDeadline(time.Now().Add(2 * time.Second))
	_, err = clientSide.Write([]byte("hello"))
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = clientSide.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf))
}

func TestDispatchRoutingFindsRuleAndForwards(t *testing.T) {
	captured := make(chan string, 1)
	addr := startBackendForControl(t, captured)
	host, port := hostPortOf(t, addr)

	doc := config.Defaults()
	doc.Mode = config.ModeRouting
	store, err := config.New(doc)
	require.NoError(t, err)
	priority := 1
	require.NoError(t, store.AddRule(config.RuleSpec{PathPattern: "/api/*", TargetHost: host, TargetPort: port, StripPrefix: true, Priority: &priority}))

	d := &Dispatcher{Config: store, Stats: stats.New(), Log: zap.NewNop()}
	clientSide, dataSide := net.Pipe()

	go d.Dispatch(context.Background(), dataSide, "req-route")

	_, err = clientSide.Write([]byte("GET /api/users HTTP/1.1\r\nHost: pub.example\r\n\r\n"))
	require.NoError(t, err)

	select {
	case head := <-captured:
		require.Contains(t, head, "GET /users HTTP/1.1\r\n")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for backend to receive request head")
	}
}

func TestDispatchRoutingNoMatchClosesConnection(t *testing.T) {
	doc := config.Defaults()
	doc.Mode = config.ModeRouting
	store, err := config.New(doc)
	require.NoError(t, err)

	d := &Dispatcher{Config: store, Stats: stats.New(), Log: zap.NewNop()}
	clientSide, dataSide := net.Pipe()

	go d.Dispatch(context.Background(), dataSide, "req-nomatch")

	clientSide.SetDeadline(time.Now().Add(2 * time.Second))
	_, err = clientSide.Write([]byte("GET /unmapped HTTP/1.1\r\nHost: pub.example\r\n\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 1)
	_, err = clientSide.Read(buf)
	require.Error(t, err) // connection closed, no route
}

func startBackendForControl(t *testing.T, capture chan<- string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		head := ""
		for {
			line, err := r.ReadString('\n')
			head += line
			if err != nil || line == "\r\n" {
				break
			}
		}
		capture <- head
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"))
	}()
	return ln.Addr().String()
}

package litepool

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jirevwe/litepool/accesslog"
	"github.com/jirevwe/litepool/accesslog/sqlite"
	"github.com/stretchr/testify/require"
)

var slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

func newTestConfig(t *testing.T) *Config {
	t.Helper()

	root := t.TempDir()
	writeFile(t, root, "index.html", "hello")
	writeFile(t, root, "404.html", "nope")

	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.Workers = 2
	cfg.Root = root
	cfg.SleepDelay = 300 * time.Millisecond
	cfg.logger = slogger
	return cfg
}

// startServer serves cfg on a loopback listener and returns the server and
// a channel that receives Serve's result.
func startServer(t *testing.T, cfg *Config) (*Server, <-chan error) {
	t.Helper()

	srv, err := NewServer(cfg)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", cfg.Addr)
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() {
		served <- srv.Serve(ln)
	}()

	require.Eventually(t, func() bool {
		return srv.Addr() != nil
	}, 5*time.Second, 5*time.Millisecond)

	return srv, served
}

func roundTrip(t *testing.T, addr net.Addr, request string) string {
	t.Helper()

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = conn.Write([]byte(request))
	require.NoError(t, err)

	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(resp)
}

func TestServer_ServesRoutes(t *testing.T) {
	srv, served := startServer(t, newTestConfig(t))

	resp := roundTrip(t, srv.Addr(), "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n")
	require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello", resp)

	resp = roundTrip(t, srv.Addr(), "GET /favicon.ico HTTP/1.1\r\n\r\n")
	require.Equal(t, "HTTP/1.1 404 NOT FOUND\r\nContent-Length: 4\r\n\r\nnope", resp)

	require.NoError(t, srv.Close())
	require.ErrorIs(t, <-served, ErrServerClosed)
}

func TestServer_SlowRequestDoesNotBlockOthers(t *testing.T) {
	srv, _ := startServer(t, newTestConfig(t))
	defer srv.Close()

	slow := make(chan time.Time, 1)
	go func() {
		roundTrip(t, srv.Addr(), RouteSleep)
		slow <- time.Now()
	}()

	// give the slow request time to be claimed by a worker
	time.Sleep(50 * time.Millisecond)

	resp := roundTrip(t, srv.Addr(), RouteIndex)
	fastDone := time.Now()
	require.True(t, strings.HasPrefix(resp, StatusOK))

	select {
	case slowDone := <-slow:
		require.True(t, fastDone.Before(slowDone), "fast request waited for the slow one")
	case <-time.After(5 * time.Second):
		t.Fatal("slow request never finished")
	}
}

func TestServer_MissingFileIsInternalError(t *testing.T) {
	cfg := newTestConfig(t)
	require.NoError(t, os.Remove(filepath.Join(cfg.Root, "index.html")))

	srv, _ := startServer(t, cfg)
	defer srv.Close()

	resp := roundTrip(t, srv.Addr(), RouteIndex)
	require.Equal(t, StatusInternalServerError+"\r\nContent-Length: 0\r\n\r\n", resp)
}

func TestServer_CloseDrainsInFlightRequests(t *testing.T) {
	srv, served := startServer(t, newTestConfig(t))

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(RouteSleep))
	require.NoError(t, err)

	// let a worker pick the request up before closing
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, srv.Close())
	require.ErrorIs(t, <-served, ErrServerClosed)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(resp), StatusOK))

	// new connections are refused once closed
	_, err = net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	require.Error(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.ErrorIs(t, srv.Serve(ln), ErrServerClosed)
}

func TestServer_RecordsAccessLog(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.DBPath = filepath.Join(t.TempDir(), "access.db")

	srv, _ := startServer(t, cfg)
	for i := 0; i < 5; i++ {
		roundTrip(t, srv.Addr(), RouteIndex)
	}
	roundTrip(t, srv.Addr(), "GET /nowhere HTTP/1.1\r\n")
	require.NoError(t, srv.Close())

	store, err := sqlite.NewSqlite(cfg.DBPath, slogger)
	require.NoError(t, err)
	defer store.Close()

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 6, count)

	entries, err := store.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, StatusNotFound, entries[0].Status)
	require.Equal(t, "GET /nowhere HTTP/1.1", entries[0].RequestLine)
	require.Equal(t, "404.html", entries[0].File)
}

func TestServer_MetricsHandler(t *testing.T) {
	srv, _ := startServer(t, newTestConfig(t))

	for i := 0; i < 3; i++ {
		roundTrip(t, srv.Addr(), RouteIndex)
	}
	require.NoError(t, srv.Close())

	rec := httptest.NewRecorder()
	srv.MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	require.Contains(t, body, "litepool_pool_jobs_queued_total 3")
	require.Contains(t, body, "litepool_pool_jobs_completed_total 3")
	require.Contains(t, body, "litepool_pool_workers_running 0")
}

func TestNewServer_InvalidConfig(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Workers = 0

	_, err := NewServer(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestServer_CloseStopsEveryListener(t *testing.T) {
	srv, err := NewServer(newTestConfig(t))
	require.NoError(t, err)

	served := make(chan error, 2)
	var addrs []net.Addr
	for i := 0; i < 2; i++ {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addrs = append(addrs, ln.Addr())

		go func() {
			served <- srv.Serve(ln)
		}()
	}

	// both accept loops are live
	for _, addr := range addrs {
		require.True(t, strings.HasPrefix(roundTrip(t, addr, RouteIndex), StatusOK))
	}

	closed := make(chan error, 1)
	go func() {
		closed <- srv.Close()
	}()

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not stop every listener")
	}

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, <-served, ErrServerClosed)
	}
}

// blockingStore holds every Record call until release is closed
type blockingStore struct {
	release  chan struct{}
	recorded chan struct{}
}

func (b *blockingStore) Record(context.Context, *accesslog.Entry) error {
	b.recorded <- struct{}{}
	<-b.release
	return nil
}

func (b *blockingStore) List(context.Context, int) ([]accesslog.Entry, error) { return nil, nil }
func (b *blockingStore) Count(context.Context) (int, error)                    { return 0, nil }
func (b *blockingStore) Close() error                                          { return nil }

func TestServer_ResponseDoesNotWaitForAccessLog(t *testing.T) {
	store := &blockingStore{release: make(chan struct{}), recorded: make(chan struct{}, 1)}

	cfg := newTestConfig(t)
	cfg.accessLog = store

	srv, _ := startServer(t, cfg)

	done := make(chan string, 1)
	go func() {
		conn, err := net.Dial("tcp", srv.Addr().String())
		if err != nil {
			done <- err.Error()
			return
		}
		defer conn.Close()

		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
		_, _ = conn.Write([]byte(RouteIndex))
		resp, _ := io.ReadAll(conn)
		done <- string(resp)
	}()

	select {
	case resp := <-done:
		require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello", resp)
	case <-time.After(2 * time.Second):
		t.Fatal("client waited for the access log write")
	}

	select {
	case <-store.recorded:
	case <-time.After(5 * time.Second):
		t.Fatal("entry was never recorded")
	}

	close(store.release)
	require.NoError(t, srv.Close())
}

package litepool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jirevwe/litepool/accesslog"
	"github.com/jirevwe/litepool/accesslog/sqlite"
	"github.com/jirevwe/litepool/pool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var ErrServerClosed = errors.New("server closed")

type Server struct {
	addr        string
	root        string
	readTimeout time.Duration

	mux        *Mux
	logger     *slog.Logger
	workerPool *pool.WorkerPool
	accessLog  accesslog.Store

	registry      *prometheus.Registry
	metricsAddr   string
	metricsServer *http.Server
	metricsOnce   sync.Once

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	lastAddr  net.Addr
	closed    bool

	// tracks running accept loops so Close can stop them before the pool
	serving sync.WaitGroup
}

func NewServer(cfg *Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}

	if cfg.mux == nil {
		cfg.mux = NewDefaultMux(cfg.SleepDelay)
	}

	if cfg.accessLog == nil && cfg.DBPath != "" {
		s, err := sqlite.NewSqlite(cfg.DBPath, cfg.logger)
		if err != nil {
			return nil, fmt.Errorf("cannot open access log: %w", err)
		}
		cfg.accessLog = s
	}

	registry := prometheus.NewRegistry()
	metrics, err := pool.NewMetrics("litepool", registry)
	if err != nil {
		return nil, err
	}

	workerPool := pool.NewWorkerPool(cfg.Workers, pool.WithLogger(cfg.logger), pool.WithMetrics(metrics))

	return &Server{
		addr:        cfg.Addr,
		root:        cfg.Root,
		readTimeout: cfg.ReadTimeout,
		mux:         cfg.mux,
		logger:      cfg.logger,
		workerPool:  workerPool,
		accessLog:   cfg.accessLog,
		registry:    registry,
		metricsAddr: cfg.MetricsAddr,
		listeners:   make(map[net.Listener]struct{}),
	}, nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln and hands each one to the worker pool. It
// may be called for several listeners at once and returns ErrServerClosed
// after Close.
func (s *Server) Serve(ln net.Listener) error {
	if !s.trackListener(ln) {
		_ = ln.Close()
		return ErrServerClosed
	}
	defer s.untrackListener(ln)

	s.startMetrics()
	s.logger.Info("listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn("accept timed out", "error", err)
				time.Sleep(10 * time.Millisecond)
				continue
			}

			return err
		}

		s.workerPool.Execute(func() {
			s.handleConn(conn)
		})
	}
}

// Close stops accepting connections, waits for queued and in-flight
// connections to be served, then releases the access log.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var errs []error
	for ln := range s.listeners {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	s.mu.Unlock()

	s.serving.Wait()
	s.workerPool.Close()

	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if s.accessLog != nil {
		if err := s.accessLog.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.Info("server has been stopped")
	return errors.Join(errs...)
}

// Addr is the address of the most recently served listener, or nil before
// Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAddr
}

// trackListener registers ln so Close can stop its accept loop. It reports
// false once the server is closed.
func (s *Server) trackListener(ln net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.listeners[ln] = struct{}{}
	s.lastAddr = ln.Addr()
	s.serving.Add(1)
	return true
}

func (s *Server) untrackListener(ln net.Listener) {
	s.mu.Lock()
	delete(s.listeners, ln)
	s.mu.Unlock()
	s.serving.Done()
}

// MetricsHandler serves the pool metrics in the Prometheus text format.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) startMetrics() {
	if s.metricsAddr == "" {
		return
	}

	s.metricsOnce.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.MetricsHandler())
		s.metricsServer = &http.Server{Addr: s.metricsAddr, Handler: mux}

		go func() {
			err := s.metricsServer.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error(err.Error(), "func", "metricsServer.ListenAndServe")
			}
		}()
	})
}

func (s *Server) handleConn(conn net.Conn) {
	start := time.Now()

	req, resp, n := s.respond(conn)
	if err := conn.Close(); err != nil {
		s.logger.Warn("cannot close connection", "remote", conn.RemoteAddr().String(), "error", err)
	}

	// the client already has its response; the access log write is not on its path
	if req != nil {
		s.record(req, resp, n, time.Since(start))
	}
}

// respond reads one request from conn and writes the response. req is nil
// when nothing could be read.
func (s *Server) respond(conn net.Conn) (req *Request, resp *Response, n int) {
	req, err := ReadRequest(conn, s.readTimeout)
	if err != nil {
		s.logger.Warn("cannot read request", "remote", conn.RemoteAddr().String(), "error", err)
		return nil, nil, 0
	}

	s.logger.Info("connection established", "remote", req.RemoteAddr(), "request_id", req.Id())

	resp, err = s.mux.ProcessRequest(context.Background(), req)
	if err != nil {
		s.logger.Error(err.Error(), "request_id", req.Id(), "func", "mux.ProcessRequest")
		resp = &Response{Status: StatusInternalServerError}
	}

	var body []byte
	if resp.File != "" {
		body, err = s.readFile(resp.File)
		if err != nil {
			s.logger.Error(err.Error(), "request_id", req.Id(), "file", resp.File)
			resp = &Response{Status: StatusInternalServerError}
		}
	}

	n, err = resp.Write(conn, body)
	if err != nil {
		s.logger.Warn("cannot write response", "request_id", req.Id(), "error", err)
	}

	return req, resp, n
}

// readFile reads name from the server root. name cannot escape the root.
func (s *Server) readFile(name string) ([]byte, error) {
	path := filepath.Join(s.root, filepath.Clean("/"+name))
	return os.ReadFile(path)
}

func (s *Server) record(req *Request, resp *Response, n int, d time.Duration) {
	if s.accessLog == nil {
		return
	}

	entry := accesslog.NewEntry(req.RemoteAddr(), req.Line())
	entry.Id = req.Id()
	entry.Status = resp.Status
	entry.File = resp.File
	entry.Bytes = n
	entry.Duration = d

	err := NewRetry(3, 50*time.Millisecond, func() error {
		return s.accessLog.Record(context.Background(), entry)
	}).Do()
	if err != nil {
		s.logger.Error(err.Error(), "request_id", req.Id(), "func", "accessLog.Record")
	}
}

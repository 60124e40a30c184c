package litepool

import (
	"bytes"
	"context"
	"sync"
	"time"
)

const (
	RouteIndex = "GET / HTTP/1.1\r\n"
	RouteSleep = "GET /sleep HTTP/1.1\r\n"
)

type Mux struct {
	entries []muxEntry
	mu      *sync.RWMutex
}

type muxEntry struct {
	h      Handler
	prefix []byte
}

func NewMux() *Mux {
	return &Mux{
		mu: &sync.RWMutex{},
	}
}

// NewDefaultMux serves index.html on "/" and, after sleepDelay, on "/sleep".
func NewDefaultMux(sleepDelay time.Duration) *Mux {
	m := NewMux()
	m.Handle(RouteIndex, FileHandler(StatusOK, "index.html"))
	m.Handle(RouteSleep, SleepHandler(sleepDelay, FileHandler(StatusOK, "index.html")))
	return m
}

// Handle registers h for requests that start with prefix. Earlier
// registrations win when several prefixes match.
func (m *Mux) Handle(prefix string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, muxEntry{
		h:      h,
		prefix: []byte(prefix),
	})
}

// match finds the first handler whose prefix the payload starts with.
func (m *Mux) match(payload []byte) (h Handler) {
	for _, e := range m.entries {
		if bytes.HasPrefix(payload, e.prefix) {
			return e.h
		}
	}

	return nil
}

// ProcessRequest dispatches the request to the handler whose
// prefix matches the start of the request.
func (m *Mux) ProcessRequest(ctx context.Context, req *Request) (*Response, error) {
	h := m.Handler(req)
	return h.ProcessRequest(ctx, req)
}

// Handler returns the handler to use for the given request.
// It always returns a non-nil handler.
//
// If there is no registered handler that applies to the request,
// handler returns a 'not found' handler.
func (m *Mux) Handler(req *Request) (h Handler) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h = m.match(req.Payload())
	if h == nil {
		h = NotFoundHandler()
	}

	return h
}

// NotFound answers with a 404 and the 404.html page.
func NotFound(context.Context, *Request) (*Response, error) {
	return &Response{Status: StatusNotFound, File: "404.html"}, nil
}

// NotFoundHandler returns a simple request handler that answers "not found".
func NotFoundHandler() Handler { return HandlerFunc(NotFound) }

package litepool

import (
	"context"
	"time"
)

// A Handler turns a request into a response.
//
// ProcessRequest should return a non-nil error only when no sensible
// response can be produced; the server then answers with a 500.
type Handler interface {
	ProcessRequest(context.Context, *Request) (*Response, error)
}

// The HandlerFunc type is an adapter to allow the use of
// ordinary functions as a Handler. If f is a function
// with the appropriate signature, HandlerFunc(f) is a
// Handler that calls f.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// ProcessRequest calls fn(ctx, req)
func (fn HandlerFunc) ProcessRequest(ctx context.Context, req *Request) (*Response, error) {
	return fn(ctx, req)
}

// FileHandler answers every request with status and the contents of file.
func FileHandler(status, file string) Handler {
	return HandlerFunc(func(context.Context, *Request) (*Response, error) {
		return &Response{Status: status, File: file}, nil
	})
}

// SleepHandler waits for d before calling next, to simulate slow work.
func SleepHandler(d time.Duration, next Handler) Handler {
	return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
		t := time.NewTimer(d)
		defer t.Stop()

		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		return next.ProcessRequest(ctx, req)
	})
}

package pool

import (
	"errors"
	"sync"
	"sync/atomic"
)

type WorkerPool struct {
	// fixed at construction, never resized
	workers []*Worker

	// producer side of the shared queue
	queue *channel

	sink EventSink

	running atomic.Int32

	// ensure the pool can only be stopped once
	stop sync.Once

	// panic raised by the first Close, nil if every worker exited cleanly
	stopErr error
}

// NewWorkerPool starts size workers that share one unbounded queue. It
// panics with ErrInvalidPoolSize if size is zero.
func NewWorkerPool(size uint, opts ...Option) *WorkerPool {
	if size == 0 {
		panic(ErrInvalidPoolSize)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	q := newChannel()
	rx := &receiver{ch: q}

	p := &WorkerPool{
		workers: make([]*Worker, size),
		queue:   q,
		sink:    o.sink(),
	}

	for i := range p.workers {
		w := newWorker(i, rx, p.sink, o.propagate, &p.running)
		p.workers[i] = w
		w.start()
	}

	return p
}

// AddWork queues job for the next idle worker. It never blocks on a busy
// pool; the queue is unbounded.
func (p *WorkerPool) AddWork(job Job) error {
	if job == nil {
		return ErrNilJob
	}

	if err := p.queue.send(work(job)); err != nil {
		return err
	}

	p.sink.HandleEvent(Event{Kind: EventJobQueued, WorkerID: -1})
	return nil
}

// Execute is AddWork for callers that treat enqueueing on a closed pool as
// a programming error: it panics instead of returning the error.
func (p *WorkerPool) Execute(job Job) {
	if err := p.AddWork(job); err != nil {
		panic(err)
	}
}

// Close queues one shutdown message per worker behind any pending work, then
// joins the workers in order. Work queued before Close is run before any
// worker stops. Close must not be called from inside a job.
func (p *WorkerPool) Close() {
	p.stop.Do(func() {
		p.queue.closeWith(len(p.workers))

		var failed []error
		for _, w := range p.workers {
			if err := w.join(); err != nil {
				failed = append(failed, err)
			}
		}

		switch len(failed) {
		case 0:
		case 1:
			p.stopErr = failed[0]
		default:
			p.stopErr = errors.Join(failed...)
		}

		if p.stopErr != nil {
			panic(p.stopErr)
		}
	})
}

func (p *WorkerPool) Size() int { return len(p.workers) }

// Running is the number of worker goroutines that have not exited.
func (p *WorkerPool) Running() int { return int(p.running.Load()) }

// Pending is the number of queued messages no worker has claimed yet.
func (p *WorkerPool) Pending() int { return p.queue.len() }

// Workers returns the pool's workers in construction order.
func (p *WorkerPool) Workers() []*Worker {
	return append([]*Worker(nil), p.workers...)
}

var _ Pool = (*WorkerPool)(nil)

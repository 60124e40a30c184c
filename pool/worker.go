package pool

import (
	"runtime/debug"
	"sync/atomic"
	"time"
)

type Worker struct {
	// the worker id
	id int

	// shared consumer side of the pool's queue
	receiver *receiver

	sink EventSink

	// end the worker when a job panics instead of recovering
	propagate bool

	// pool-wide count of live worker goroutines
	running *atomic.Int32

	// closed when the goroutine has returned
	done chan struct{}

	// set before done is closed if a job panic ended the worker
	err *WorkerPanicError
}

func newWorker(id int, r *receiver, sink EventSink, propagate bool, running *atomic.Int32) *Worker {
	return &Worker{
		id:        id,
		receiver:  r,
		sink:      sink,
		propagate: propagate,
		running:   running,
		done:      make(chan struct{}),
	}
}

func (w *Worker) ID() int { return w.id }

// Terminated reports whether the worker goroutine has exited.
func (w *Worker) Terminated() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *Worker) start() {
	w.running.Add(1)
	w.sink.HandleEvent(Event{Kind: EventWorkerStarted, WorkerID: w.id})
	go w.run()
}

func (w *Worker) run() {
	defer close(w.done)
	defer func() {
		w.running.Add(-1)
		w.sink.HandleEvent(Event{Kind: EventWorkerStopped, WorkerID: w.id})
	}()

	for {
		m := w.receiver.claim()
		if m.kind == shutdownMessage {
			return
		}

		w.sink.HandleEvent(Event{Kind: EventJobClaimed, WorkerID: w.id})

		if p := w.execute(m.job); p != nil && w.propagate {
			w.err = p
			return
		}
	}
}

// execute runs job on the worker's goroutine and turns a panic into a
// *WorkerPanicError.
func (w *Worker) execute(job Job) (p *WorkerPanicError) {
	start := time.Now()

	defer func() {
		rec := recover()
		if rec == nil {
			w.sink.HandleEvent(Event{Kind: EventJobDone, WorkerID: w.id, Duration: time.Since(start)})
			return
		}

		p = &WorkerPanicError{WorkerID: w.id, Value: rec, Stack: debug.Stack()}
		w.sink.HandleEvent(Event{
			Kind:     EventJobPanicked,
			WorkerID: w.id,
			Duration: time.Since(start),
			Panic:    rec,
			Stack:    p.Stack,
		})
	}()

	job()
	return nil
}

// join blocks until the worker goroutine has exited.
func (w *Worker) join() *WorkerPanicError {
	<-w.done
	return w.err
}

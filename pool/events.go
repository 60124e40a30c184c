package pool

import (
	"fmt"
	"log/slog"
	"time"
)

type EventKind uint8

const (
	EventWorkerStarted EventKind = iota
	EventJobQueued
	EventJobClaimed
	EventJobDone
	EventJobPanicked
	EventWorkerStopped
)

func (k EventKind) String() string {
	switch k {
	case EventWorkerStarted:
		return "worker_started"
	case EventJobQueued:
		return "job_queued"
	case EventJobClaimed:
		return "job_claimed"
	case EventJobDone:
		return "job_done"
	case EventJobPanicked:
		return "job_panicked"
	case EventWorkerStopped:
		return "worker_stopped"
	default:
		return "unknown"
	}
}

// Event describes something that happened inside the pool. WorkerID is -1
// for events raised on the producer side.
type Event struct {
	Kind     EventKind
	WorkerID int

	// Duration is set on EventJobDone and EventJobPanicked
	Duration time.Duration

	// Panic and Stack are set on EventJobPanicked
	Panic any
	Stack []byte
}

// An EventSink observes pool events. HandleEvent is called from worker
// goroutines and from callers of AddWork, so it must be safe for
// concurrent use and should return quickly.
type EventSink interface {
	HandleEvent(Event)
}

// The EventSinkFunc type is an adapter to allow the use of
// ordinary functions as an EventSink.
type EventSinkFunc func(Event)

// HandleEvent calls fn(e)
func (fn EventSinkFunc) HandleEvent(e Event) {
	fn(e)
}

type multiSink []EventSink

func (m multiSink) HandleEvent(e Event) {
	for _, s := range m {
		s.HandleEvent(e)
	}
}

// LogSink returns an EventSink that writes pool events to log.
func LogSink(log *slog.Logger) EventSink {
	return EventSinkFunc(func(e Event) {
		switch e.Kind {
		case EventWorkerStarted:
			log.Info(fmt.Sprintf("starting worker %d", e.WorkerID))
		case EventJobClaimed:
			log.Debug(fmt.Sprintf("worker %d got a job; executing.", e.WorkerID))
		case EventJobPanicked:
			log.Error(fmt.Sprintf("worker %d job panicked", e.WorkerID),
				"panic", fmt.Sprint(e.Panic), "stack", string(e.Stack))
		case EventWorkerStopped:
			log.Info(fmt.Sprintf("worker %d has been stopped", e.WorkerID))
		}
	})
}

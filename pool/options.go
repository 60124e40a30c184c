package pool

import "log/slog"

type options struct {
	log       *slog.Logger
	sinks     []EventSink
	propagate bool
}

type Option func(*options)

// WithLogger sets the logger used by the default event sink.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithEventSink adds a sink that receives every pool event. It may be
// given more than once.
func WithEventSink(s EventSink) Option {
	return func(o *options) {
		if s != nil {
			o.sinks = append(o.sinks, s)
		}
	}
}

// WithMetrics feeds pool events into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.sinks = append(o.sinks, m)
		}
	}
}

// WithPanicPropagation makes a panicking job end the worker that ran it
// instead of being recovered. The worker is not replaced, and Close panics
// with a *WorkerPanicError after every worker has been joined.
func WithPanicPropagation() Option {
	return func(o *options) {
		o.propagate = true
	}
}

func (o *options) sink() EventSink {
	log := o.log
	if log == nil {
		log = slog.Default()
	}

	return append(multiSink{LogSink(log)}, o.sinks...)
}

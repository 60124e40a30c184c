package pool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is an EventSink that exports pool activity as Prometheus
// collectors.
type Metrics struct {
	JobsQueued     prometheus.Counter
	JobsCompleted  prometheus.Counter
	JobsPanicked   prometheus.Counter
	WorkersRunning prometheus.Gauge
	JobDuration    prometheus.Histogram
}

// NewMetrics builds the pool collectors and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		JobsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_queued_total",
			Help:      "Total number of jobs queued on the pool",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_completed_total",
			Help:      "Total number of jobs that ran to completion",
		}),
		JobsPanicked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_panicked_total",
			Help:      "Total number of jobs that panicked",
		}),
		WorkersRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "workers_running",
			Help:      "Current number of live worker goroutines",
		}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "job_duration_seconds",
			Help:      "Histogram of job execution time",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{
		m.JobsQueued,
		m.JobsCompleted,
		m.JobsPanicked,
		m.WorkersRunning,
		m.JobDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) HandleEvent(e Event) {
	switch e.Kind {
	case EventWorkerStarted:
		m.WorkersRunning.Inc()
	case EventWorkerStopped:
		m.WorkersRunning.Dec()
	case EventJobQueued:
		m.JobsQueued.Inc()
	case EventJobDone:
		m.JobsCompleted.Inc()
		m.JobDuration.Observe(e.Duration.Seconds())
	case EventJobPanicked:
		m.JobsPanicked.Inc()
		m.JobDuration.Observe(e.Duration.Seconds())
	}
}

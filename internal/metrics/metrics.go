// Package metrics exports task execution metrics to Prometheus by
// observing schedule lifecycle events.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/taskrun/internal/schedule"
	"github.com/flemzord/taskrun/internal/task"
)

const namespace = "taskrun"

// Observer records batch and task metrics. It implements schedule.Observer.
type Observer struct {
	batches  prometheus.Counter
	results  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lastDue  prometheus.Gauge

	mu     sync.Mutex
	starts map[*task.Task]time.Time
	now    func() time.Time
}

// Compile-time interface check.
var _ schedule.Observer = (*Observer)(nil)

// NewObserver creates the collectors and registers them with reg.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Number of schedule batches run.",
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_results_total",
			Help:      "Task results by task id and status.",
		}, []string{"task", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Task execution time including handlers.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"task"}),
		lastDue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch_due_tasks",
			Help:      "Number of tasks run by the last completed batch.",
		}),
		starts: make(map[*task.Task]time.Time),
		now:    time.Now,
	}

	for _, c := range []prometheus.Collector{o.batches, o.results, o.duration, o.lastDue} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return o, nil
}

// Observe implements schedule.Observer.
func (o *Observer) Observe(_ context.Context, e schedule.Event) {
	switch e := e.(type) {
	case schedule.BatchStarting:
		o.batches.Inc()
	case schedule.TaskStarting:
		o.mu.Lock()
		o.starts[e.Task] = o.now()
		o.mu.Unlock()
	case schedule.TaskFinished:
		t := e.Task
		id := t.ID()
		o.results.WithLabelValues(id, e.Result.Status().String()).Inc()

		o.mu.Lock()
		start, ok := o.starts[t]
		delete(o.starts, t)
		o.mu.Unlock()
		if ok {
			o.duration.WithLabelValues(id).Observe(o.now().Sub(start).Seconds())
		}
	case schedule.BatchFinished:
		o.lastDue.Set(float64(e.Results.Len()))
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Package metrics exposes prometheus instrumentation for recommendations and
// embedding tasks.
package metrics

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jobrec"

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Metrics holds every collector the application records to.
type Metrics struct {
	recommendations *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	returned        *prometheus.HistogramVec

	taskProcessed  *prometheus.CounterVec
	taskFailed     *prometheus.CounterVec
	taskInProgress *prometheus.GaugeVec
}

// New registers the collectors with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		recommendations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "recommend",
				Name:      "requests_total",
				Help:      "Recommendation requests by strategy and outcome.",
			},
			[]string{"strategy", "outcome"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "recommend",
				Name:      "duration_seconds",
				Help:      "Recommendation latency by strategy.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
		returned: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "recommend",
				Name:      "results",
				Help:      "Number of postings returned per request.",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"strategy"},
		),
		taskProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "asynq",
				Name:      "tasks_processed_total",
				Help:      "Total number of processed tasks.",
			},
			[]string{"task_type"},
		),
		taskFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "asynq",
				Name:      "tasks_failed_total",
				Help:      "Total number of failed tasks.",
			},
			[]string{"task_type"},
		),
		taskInProgress: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "asynq",
				Name:      "tasks_in_progress",
				Help:      "Tasks currently being processed.",
			},
			[]string{"task_type"},
		),
	}
}

// ObserveRecommendation records one finished request. A nil receiver is a
// no-op.
func (m *Metrics) ObserveRecommendation(strategy, outcome string, took time.Duration, returned int) {
	if m == nil {
		return
	}
	if strategy == "" {
		strategy = "unknown"
	}
	m.recommendations.WithLabelValues(strategy, outcome).Inc()
	m.latency.WithLabelValues(strategy).Observe(took.Seconds())
	if outcome != OutcomeError {
		m.returned.WithLabelValues(strategy).Observe(float64(returned))
	}
}

// AsynqMiddleware records task processing metrics.
func (m *Metrics) AsynqMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			taskType := task.Type()
			m.taskInProgress.WithLabelValues(taskType).Inc()
			defer m.taskInProgress.WithLabelValues(taskType).Dec()

			err := next.ProcessTask(ctx, task)
			if err != nil {
				m.taskFailed.WithLabelValues(taskType).Inc()
			}

			m.taskProcessed.WithLabelValues(taskType).Inc()

			return err
		})
	}
}

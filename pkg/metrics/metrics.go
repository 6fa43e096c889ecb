// Package metrics holds the prometheus collectors shared by the api, scheduler
// and provider layers.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aegis_edge"

var (
	once sync.Once

	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "evaluations_total",
			Help:      "Symbol evaluations by resulting direction and readiness",
		},
		[]string{"direction", "ready"},
	)

	EvaluationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "evaluation_errors_total",
			Help:      "Rejected or failed evaluations by error kind",
		},
		[]string{"kind"},
	)

	EvaluationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "evaluation_seconds",
			Help:      "Latency of gather+evaluate per symbol",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	ConfirmedCriteria = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "confirmed_criteria",
			Help:      "Distribution of confirmed checklist items per evaluation",
			Buckets:   prometheus.LinearBuckets(0, 1, 13),
		},
	)

	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Outbound HTTP requests by host and status",
		},
		[]string{"host", "status"},
	)

	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_seconds",
			Help:      "Outbound HTTP latency by host",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"host"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Inbound API requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_seconds",
			Help:      "Inbound API latency",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route", "method"},
	)

	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by outcome",
		},
		[]string{"job", "status"},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_seconds",
			Help:      "Scheduled job duration, retries included",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"job"},
	)
)

// Register adds all collectors to the default registry exactly once
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			EvaluationsTotal,
			EvaluationErrors,
			EvaluationLatency,
			ConfirmedCriteria,
			UpstreamRequests,
			UpstreamLatency,
			HTTPRequests,
			HTTPLatency,
			JobRuns,
			JobDuration,
		)
	})
}

// ObserveEvaluation records a finished evaluation
func ObserveEvaluation(direction string, ready bool, confirmed int) {
	EvaluationsTotal.WithLabelValues(direction, strconv.FormatBool(ready)).Inc()
	ConfirmedCriteria.Observe(float64(confirmed))
}

// ObserveStage records the duration of a pipeline stage
func ObserveStage(stage string, started time.Time) {
	EvaluationLatency.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// ObserveUpstream records an outbound request; status 0 means transport failure
func ObserveUpstream(host string, status int, elapsed time.Duration) {
	UpstreamRequests.WithLabelValues(host, strconv.Itoa(status)).Inc()
	UpstreamLatency.WithLabelValues(host).Observe(elapsed.Seconds())
}

// ObserveJob records a finished scheduled job
func ObserveJob(job string, status string, elapsed time.Duration) {
	JobRuns.WithLabelValues(job, status).Inc()
	JobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

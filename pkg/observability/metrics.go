// Package observability exposes Prometheus metrics and health endpoints for
// the form-filling engine.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Turn metrics
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formflow_turns_total",
			Help: "Total number of processed turns",
		},
		[]string{"step", "status"},
	)

	turnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formflow_turn_duration_seconds",
			Help:    "Turn processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	turnErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formflow_turn_errors_total",
			Help: "Total number of turns that failed without a state write",
		},
		[]string{"step"},
	)

	// Parser metrics
	parseFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formflow_extraction_parse_failures_total",
			Help: "Total number of extraction responses that degraded to unstructured output",
		},
		[]string{"step"},
	)

	// Collaborator metrics
	collaboratorCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formflow_collaborator_calls_total",
			Help: "Total number of collaborator calls",
		},
		[]string{"service", "status"},
	)

	collaboratorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formflow_collaborator_call_duration_seconds",
			Help:    "Collaborator call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// Session metrics
	sessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formflow_sessions_started_total",
			Help: "Total number of sessions created",
		},
	)

	sessionsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formflow_sessions_completed_total",
			Help: "Total number of sessions that reached completed status",
		},
	)

	initOnce sync.Once
)

// InitMetrics initializes Prometheus metrics
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			turnsTotal,
			turnDuration,
			turnErrorsTotal,
			parseFailuresTotal,
			collaboratorCalls,
			collaboratorDuration,
			sessionsStarted,
			sessionsCompleted,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordTurn records a completed turn
func RecordTurn(step, status string, duration time.Duration) {
	turnsTotal.WithLabelValues(step, status).Inc()
	turnDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordTurnError records a turn that failed fatally
func RecordTurnError(step string) {
	turnErrorsTotal.WithLabelValues(step).Inc()
}

// RecordParseFailure records an extraction response that degraded to
// unstructured output
func RecordParseFailure(step string) {
	parseFailuresTotal.WithLabelValues(step).Inc()
}

// RecordCollaboratorCall records one collaborator call
func RecordCollaboratorCall(service, status string, duration time.Duration) {
	collaboratorCalls.WithLabelValues(service, status).Inc()
	collaboratorDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordSessionStarted increments the created-sessions counter
func RecordSessionStarted() {
	sessionsStarted.Inc()
}

// RecordSessionCompleted increments the completed-sessions counter
func RecordSessionCompleted() {
	sessionsCompleted.Inc()
}

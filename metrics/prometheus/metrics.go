// Package prometheus provides Prometheus metrics for BodyTrack sessions.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bodytrack"

var (
	// framesSubmittedTotal counts frames offered by the capture source.
	framesSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_submitted_total",
			Help:      "Total number of raw frames offered to the dispatch engine",
		},
	)

	// framesAdmittedTotal counts frames that passed all admission checks.
	framesAdmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_admitted_total",
			Help:      "Total number of frames admitted and dispatched for analysis",
		},
	)

	// framesDroppedTotal counts dropped frames by reason.
	framesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Total number of frames dropped at admission",
		},
		[]string{"reason"}, // reason: idle, stopped, paced, budget, stalled, encode
	)

	// framesInFlight gauges currently outstanding analysis requests.
	framesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frames_in_flight",
			Help:      "Number of analysis requests currently outstanding",
		},
	)

	// analyzeRequestDuration is a histogram of per-frame request duration.
	analyzeRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analyze_request_duration_seconds",
			Help:      "Duration of analyze-frame service calls in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"}, // status: success, error
	)

	// stallsTotal counts network stall aborts signaled by the watchdog.
	stallsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "network_stalls_total",
			Help:      "Total number of network stall aborts",
		},
	)

	// stageTransitionsTotal counts stage entries by stage name.
	stageTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Total number of session stage entries",
		},
		[]string{"stage"},
	)

	// sessionsTotal counts finished sessions by outcome.
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of finished sessions",
		},
		[]string{"outcome"}, // outcome: completed, aborted
	)

	// sessionDuration is a histogram of total session duration.
	sessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Histogram of total session duration in seconds",
			Buckets:   []float64{15, 30, 60, 90, 120, 180, 300},
		},
		[]string{"outcome"},
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		framesSubmittedTotal,
		framesAdmittedTotal,
		framesDroppedTotal,
		framesInFlight,
		analyzeRequestDuration,
		stallsTotal,
		stageTransitionsTotal,
		sessionsTotal,
		sessionDuration,
	}
)

// RecordFrameSubmitted records one frame offered by the capture source.
func RecordFrameSubmitted() {
	framesSubmittedTotal.Inc()
}

// RecordFrameAdmitted records one frame admitted for dispatch.
func RecordFrameAdmitted() {
	framesAdmittedTotal.Inc()
}

// RecordFrameDropped records one dropped frame under the given reason.
func RecordFrameDropped(reason string) {
	framesDroppedTotal.WithLabelValues(reason).Inc()
}

// IncFramesInFlight increments the in-flight gauge.
func IncFramesInFlight() {
	framesInFlight.Inc()
}

// DecFramesInFlight decrements the in-flight gauge.
func DecFramesInFlight() {
	framesInFlight.Dec()
}

// RecordAnalyzeRequest records one analyze-frame call.
func RecordAnalyzeRequest(status string, durationSeconds float64) {
	analyzeRequestDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordStall records one network stall abort.
func RecordStall() {
	stallsTotal.Inc()
}

// RecordStageTransition records entry into a session stage.
func RecordStageTransition(stage string) {
	stageTransitionsTotal.WithLabelValues(stage).Inc()
}

// RecordSessionEnd records a finished session.
func RecordSessionEnd(outcome string, durationSeconds float64) {
	sessionsTotal.WithLabelValues(outcome).Inc()
	sessionDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

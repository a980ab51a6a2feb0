package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Merge sources
const (
	SourceSnapshot   = "snapshot"
	SourceStream     = "stream"
	SourceSubmission = "submission"
)

// Submission outcomes
const (
	OutcomeAlert    = "alert_generated"
	OutcomeAccepted = "accepted"
	OutcomeError    = "error"
)

var connectivityStates = []string{"CONNECTING", "CONNECTED", "DISCONNECTED"}

var (
	alertsMergedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "safety_dashboard",
			Name:      "alerts_merged_total",
			Help:      "Alerts inserted into the store, partitioned by source.",
		},
		[]string{"source"},
	)

	alertsDuplicateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "safety_dashboard",
			Name:      "alerts_duplicate_total",
			Help:      "Alerts dropped because their id was already present, partitioned by source.",
		},
		[]string{"source"},
	)

	streamDecodeErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "safety_dashboard",
			Name:      "stream_decode_errors_total",
			Help:      "Stream messages dropped because they did not decode to an alert.",
		},
	)

	streamConnectivity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "safety_dashboard",
			Name:      "stream_connectivity",
			Help:      "1 for the current connectivity state of the alert stream, 0 otherwise.",
		},
		[]string{"state"},
	)

	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "safety_dashboard",
			Name:      "submissions_total",
			Help:      "Sensor reading submissions, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	reconnectAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "safety_dashboard",
			Name:      "reconnect_attempts_total",
			Help:      "Stream reconnect attempts made by the reconnect policy.",
		},
	)

	snapshotLoadSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "safety_dashboard",
			Name:      "snapshot_load_seconds",
			Help:      "Latency of the initial snapshot load in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"outcome"},
	)
)

// Register attaches the dashboard collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		alertsMergedTotal,
		alertsDuplicateTotal,
		streamDecodeErrorsTotal,
		streamConnectivity,
		submissionsTotal,
		reconnectAttemptsTotal,
		snapshotLoadSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveMerge records the result of a store merge
func ObserveMerge(source string, inserted bool) {
	if inserted {
		alertsMergedTotal.WithLabelValues(source).Inc()
		return
	}
	alertsDuplicateTotal.WithLabelValues(source).Inc()
}

// ObserveSeed records alerts installed from a snapshot
func ObserveSeed(count int) {
	alertsMergedTotal.WithLabelValues(SourceSnapshot).Add(float64(count))
}

// ObserveDecodeError records a dropped stream message
func ObserveDecodeError() {
	streamDecodeErrorsTotal.Inc()
}

// SetConnectivity flags the current connectivity state
func SetConnectivity(state string) {
	for _, s := range connectivityStates {
		value := 0.0
		if s == state {
			value = 1
		}
		streamConnectivity.WithLabelValues(s).Set(value)
	}
}

// ObserveSubmission records a submission outcome label
func ObserveSubmission(outcome string) {
	switch outcome {
	case OutcomeAlert, OutcomeAccepted:
	default:
		outcome = OutcomeError
	}
	submissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveReconnectAttempt records one reconnect attempt
func ObserveReconnectAttempt() {
	reconnectAttemptsTotal.Inc()
}

// ObserveSnapshotLoad records a snapshot load duration and whether it succeeded
func ObserveSnapshotLoad(duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = OutcomeError
	}
	if duration < 0 {
		duration = 0
	}
	snapshotLoadSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeCreated labels events that produced a persisted incident.
	OutcomeCreated = "created"
	// OutcomeSkipped labels low-severity events suppressed before storage.
	OutcomeSkipped = "skipped"
	// OutcomeSuccess labels successful operations.
	OutcomeSuccess = "success"
	// OutcomeError labels failed operations.
	OutcomeError = "error"
)

var (
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudops_engine",
			Name:      "events_total",
			Help:      "Total number of ingested events, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	eventProcessingSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cloudops_engine",
			Name:      "event_processing_seconds",
			Help:      "Event classification and persistence latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudops_engine",
			Name:      "notifications_total",
			Help:      "Total number of notification dispatch attempts, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	aggregationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cloudops_engine",
			Name:      "metrics_aggregation_seconds",
			Help:      "Dashboard metrics aggregation latency in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
)

// Register attaches the engine collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		eventsTotal,
		eventProcessingSeconds,
		notificationsTotal,
		aggregationSeconds,
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

// ObserveEvent records one event-processing invocation.
func ObserveEvent(duration time.Duration, outcome string) {
	eventsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	eventProcessingSeconds.Observe(duration.Seconds())
}

// ObserveNotification records one notification dispatch attempt.
func ObserveNotification(outcome string) {
	notificationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveAggregation records one metrics-aggregation run.
func ObserveAggregation(duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	aggregationSeconds.Observe(duration.Seconds())
}

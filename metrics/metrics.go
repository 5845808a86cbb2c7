package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// IssuesCreatedTotal counts stored issues by type (Manual or a classifier label).
	IssuesCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicvoice",
		Subsystem: "issues",
		Name:      "created_total",
		Help:      "Total number of issues stored, labeled by issue type.",
	}, []string{"type"})

	// StoreErrorsTotal counts failed store operations.
	StoreErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicvoice",
		Subsystem: "issues",
		Name:      "store_errors_total",
		Help:      "Total number of failed issue store operations, labeled by operation.",
	}, []string{"op"})

	// ClassificationsTotal counts classifier results by label.
	ClassificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicvoice",
		Subsystem: "classifier",
		Name:      "classifications_total",
		Help:      "Total number of photo classifications, labeled by resulting label.",
	}, []string{"label"})

	// ClassifierAttemptsTotal counts individual model calls by outcome.
	ClassifierAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicvoice",
		Subsystem: "classifier",
		Name:      "attempts_total",
		Help:      "Total number of model calls, labeled by result (ok, rate_limited, error).",
	}, []string{"result"})

	// ClassificationDurationSeconds is the end-to-end time of one classification including backoff.
	ClassificationDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "civicvoice",
		Subsystem: "classifier",
		Name:      "duration_seconds",
		Help:      "End-to-end time to classify one photo, including retries and backoff sleeps.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60},
	})

	// NotificationsTotal counts notification emails by result.
	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicvoice",
		Subsystem: "notifications",
		Name:      "sent_total",
		Help:      "Total number of issue notification attempts, labeled by result.",
	}, []string{"result"})

	// EventsPublishedTotal counts issue events by result.
	EventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicvoice",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Total number of issue.created events, labeled by result.",
	}, []string{"result"})

	// AuthResultsTotal counts session verifications by result.
	AuthResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicvoice",
		Subsystem: "auth",
		Name:      "verifications_total",
		Help:      "Total number of session verifications, labeled by result (ok, rejected, dev_fallback).",
	}, []string{"result"})
)

// Register registers service metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			IssuesCreatedTotal,
			StoreErrorsTotal,
			ClassificationsTotal,
			ClassifierAttemptsTotal,
			ClassificationDurationSeconds,
			NotificationsTotal,
			EventsPublishedTotal,
			AuthResultsTotal,
		)
	})
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Fan-out metrics
	NotificationsPersisted *prometheus.CounterVec
	EmailDeliveries        *prometheus.CounterVec
	EmailLatency           prometheus.Histogram

	// Booking metrics
	Assignments  *prometheus.CounterVec
	SlotLockWait prometheus.Histogram

	// Registry metrics
	RegistryRequests *prometheus.CounterVec
	RegistryLatency  prometheus.Histogram

	// Sweep metrics
	SweepRuns       *prometheus.CounterVec
	ExpiredLicenses prometheus.Gauge
	RemindersSent   prometheus.Counter
	RelayedEmails   *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on reg. Pass
// prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		NotificationsPersisted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_persisted_total",
			Help:      "Total number of notifications written, by type",
		}, []string{"type"}),
		EmailDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_deliveries_total",
			Help:      "Total number of email delivery attempts, by status",
		}, []string{"status"}),
		EmailLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "email_delivery_duration_seconds",
			Help:      "Time spent handing an email to the delivery backend",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),

		Assignments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignments_total",
			Help:      "Total number of provider assignment attempts, by outcome",
		}, []string{"outcome"}),
		SlotLockWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slot_lock_wait_seconds",
			Help:      "Time spent waiting to enter a booking slot critical section",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}),

		RegistryRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_requests_total",
			Help:      "Total number of provider registry requests, by outcome",
		}, []string{"outcome"}),
		RegistryLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "registry_request_duration_seconds",
			Help:      "Duration of provider registry requests including retries",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),

		SweepRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Total number of sweep runs, by sweep and status",
		}, []string{"sweep", "status"}),
		ExpiredLicenses: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "expired_licenses",
			Help:      "Number of providers with an expired license at the last sweep",
		}),
		RemindersSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Total number of consultation reminders fanned out",
		}),
		RelayedEmails: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_emails_total",
			Help:      "Total number of queued emails relayed by the worker, by status",
		}, []string{"status"}),
	}
}

// NewTestMetrics registers on a throwaway registry.
func NewTestMetrics() *Metrics {
	return NewMetrics("test", prometheus.NewRegistry())
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notifier_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// TickDuration measures one run of a scheduled task
	TickDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notifier_task_duration_seconds",
			Help:    "Duration of scheduled task runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task"},
	)

	// ReminderClaims counts claim attempts by outcome: won, conflict, error
	ReminderClaims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_reminder_claims_total",
			Help: "Reminder claim attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Deliveries counts external delivery attempts
	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_deliveries_total",
			Help: "External message deliveries by kind and status",
		},
		[]string{"kind", "status"},
	)

	NotificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_notifications_created_total",
			Help: "In-app notifications created by type",
		},
		[]string{"type"},
	)

	BroadcastRecipients = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_broadcast_recipients_total",
			Help: "Clients processed by check-in broadcasts",
		},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notifier_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	IngestedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_ingested_events_total",
			Help: "Notification events consumed from the message bus",
		},
		[]string{"status"},
	)

	once sync.Once
)

// Init registers every collector with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			RequestCount,
			RequestDuration,
			TickDuration,
			ReminderClaims,
			Deliveries,
			NotificationsCreated,
			BroadcastRecipients,
			CircuitBreakerState,
			IngestedEvents,
		)
	})
}

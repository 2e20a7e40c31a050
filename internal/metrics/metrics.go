package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/tubealert/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); its methods are handed to services
// and workers as hook functions so those packages stay metrics-agnostic.
type Metrics struct {
	QueueOutcomes        *prometheus.CounterVec
	QueueDepth           prometheus.Gauge
	Summaries            *prometheus.CounterVec
	NotificationsCreated prometheus.Counter
	EmailsSent           prometheus.Counter
	EmailsFailed         *prometheus.CounterVec
	SendLatency          prometheus.Histogram
	SubscriptionResets   prometheus.Counter
	WorkerRunning        *prometheus.GaugeVec
}

// New registers all instruments with the given Prometheus registerer.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueueOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_messages_processed_total",
			Help: "Queue messages processed by the queue worker, by outcome.",
		}, []string{"outcome"}),

		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Messages currently in the notification queue, visible or not.",
		}),

		Summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "summaries_resolved_total",
			Help: "Video summaries resolved, by source (cache or generated).",
		}, []string{"source"}),

		NotificationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Pending notification rows created by fan-out.",
		}),

		EmailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Notification emails accepted by the provider.",
		}),

		EmailsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "emails_failed_total",
			Help: "Notification rows marked failed, by reason.",
		}, []string{"reason"}),

		SendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "email_send_seconds",
			Help:    "Latency of a single provider send call.",
			Buckets: prometheus.DefBuckets,
		}),

		SubscriptionResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subscription_usage_resets_total",
			Help: "Subscription usage periods rolled forward.",
		}),

		WorkerRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "worker_running",
			Help: "1 when the named worker loop is running.",
		}, []string{"worker"}),
	}

	reg.MustRegister(
		m.QueueOutcomes,
		m.QueueDepth,
		m.Summaries,
		m.NotificationsCreated,
		m.EmailsSent,
		m.EmailsFailed,
		m.SendLatency,
		m.SubscriptionResets,
		m.WorkerRunning,
	)

	return m
}

func (m *Metrics) ObserveOutcome(o domain.Outcome) {
	if o == domain.OutcomeEmpty {
		return
	}
	m.QueueOutcomes.WithLabelValues(string(o)).Inc()
}

func (m *Metrics) SetQueueDepth(n int) { m.QueueDepth.Set(float64(n)) }

func (m *Metrics) ObserveSummary(source string) { m.Summaries.WithLabelValues(source).Inc() }

func (m *Metrics) AddNotificationsCreated(n int) { m.NotificationsCreated.Add(float64(n)) }

func (m *Metrics) ObserveSent(latency time.Duration) {
	m.EmailsSent.Inc()
	m.SendLatency.Observe(latency.Seconds())
}

func (m *Metrics) ObserveFailed(reason string) { m.EmailsFailed.WithLabelValues(reason).Inc() }

func (m *Metrics) ObserveReset() { m.SubscriptionResets.Inc() }

func (m *Metrics) SetWorkerRunning(name string, running bool) {
	v := 0.0
	if running {
		v = 1
	}
	m.WorkerRunning.WithLabelValues(name).Set(v)
}

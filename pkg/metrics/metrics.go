package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreLatency    *prometheus.HistogramVec

	// Extraction metrics
	ExtractionRequests *prometheus.CounterVec
	ExtractionLatency  prometheus.Histogram

	// Reminder metrics
	RemindersFired  prometheus.Counter
	RemindersArmed  prometheus.Gauge
	NotifyFailures  *prometheus.CounterVec
	DocumentsRolled prometheus.Counter
	PublishFailures prometheus.Counter
}

// NewMetrics creates and registers all application metrics on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StoreOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of document store operations",
		}, []string{"backend", "operation", "status"}),
		StoreLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of document store operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"backend", "operation"}),

		ExtractionRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "requests_total",
			Help:      "Total number of prescription extraction requests",
		}, []string{"status"}),
		ExtractionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "duration_seconds",
			Help:      "Time spent waiting on the extraction model",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 20, 40},
		}),

		RemindersFired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "fired_total",
			Help:      "Total number of reminder notifications emitted",
		}),
		RemindersArmed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "armed",
			Help:      "Current number of armed reminder timers",
		}),
		NotifyFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "notify_failures_total",
			Help:      "Total number of notifications a notifier failed to deliver",
		}, []string{"notifier"}),
		DocumentsRolled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rollover",
			Name:      "documents_total",
			Help:      "Total number of documents whose taken flags were reset",
		}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "publish_failures_total",
			Help:      "Total number of failed broker publishes",
		}),
	}
}

func (m *Metrics) ObserveStore(backend, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StoreOperations.WithLabelValues(backend, operation, status).Inc()
	m.StoreLatency.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveExtraction(status string, start time.Time) {
	if m == nil {
		return
	}
	m.ExtractionRequests.WithLabelValues(status).Inc()
	m.ExtractionLatency.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ReminderFired() {
	if m == nil {
		return
	}
	m.RemindersFired.Inc()
}

func (m *Metrics) AddArmed(delta int) {
	if m == nil || delta == 0 {
		return
	}
	m.RemindersArmed.Add(float64(delta))
}

func (m *Metrics) NotifyFailed(notifier string) {
	if m == nil {
		return
	}
	m.NotifyFailures.WithLabelValues(notifier).Inc()
}

func (m *Metrics) DocumentRolled() {
	if m == nil {
		return
	}
	m.DocumentsRolled.Inc()
}

func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}

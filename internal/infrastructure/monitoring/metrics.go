package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics.
type Metrics struct {
	HTTPRequests       *prometheus.CounterVec
	HTTPLatency        *prometheus.HistogramVec
	AdmissionDecisions *prometheus.CounterVec
	AdmissionErrors    *prometheus.CounterVec
	BansIssued         prometheus.Counter
	Unbans             prometheus.Counter
	LogQueueDepth      prometheus.Gauge
	LogWriteFailures   prometheus.Counter
	LogRecordsLost     prometheus.Counter
	OverflowFiles      prometheus.Counter
	OverflowFailures   prometheus.Counter
	TrackedRateWindows prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statusservice_http_requests_total",
				Help: "Total number of HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "statusservice_http_request_duration_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AdmissionDecisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statusservice_admission_decisions_total",
				Help: "Admission outcomes: blocked, pass, soft_throttle, hard_ban, exempt.",
			},
			[]string{"decision"},
		),
		AdmissionErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statusservice_admission_errors_total",
				Help: "Admission stage errors that were failed open.",
			},
			[]string{"stage"},
		),
		BansIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "statusservice_bans_issued_total",
			Help: "Bans written by the rate limiter.",
		}),
		Unbans: f.NewCounter(prometheus.CounterOpts{
			Name: "statusservice_unbans_total",
			Help: "Bans removed through the admin endpoint.",
		}),
		LogQueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "statusservice_log_queue_depth",
			Help: "Request log records waiting to be persisted.",
		}),
		LogWriteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "statusservice_log_write_failures_total",
			Help: "Request log records the store refused.",
		}),
		LogRecordsLost: f.NewCounter(prometheus.CounterOpts{
			Name: "statusservice_log_records_lost_total",
			Help: "Request log records dropped at shutdown or submitted after close.",
		}),
		OverflowFiles: f.NewCounter(prometheus.CounterOpts{
			Name: "statusservice_overflow_files_total",
			Help: "Request bodies offloaded to overflow files.",
		}),
		OverflowFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "statusservice_overflow_failures_total",
			Help: "Overflow offloads that failed.",
		}),
		TrackedRateWindows: f.NewGauge(prometheus.GaugeOpts{
			Name: "statusservice_rate_windows_tracked",
			Help: "Sliding windows currently held in memory.",
		}),
	}
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordDecision counts an admission outcome.
func (m *Metrics) RecordDecision(decision string) {
	m.AdmissionDecisions.WithLabelValues(decision).Inc()
}

// RecordAdmissionError counts an admission stage failure.
func (m *Metrics) RecordAdmissionError(stage string) {
	m.AdmissionErrors.WithLabelValues(stage).Inc()
}

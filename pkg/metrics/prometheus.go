package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent     *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	lastAmount       *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
	reportsGenerated *prometheus.CounterVec
	opportunities    *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sellingview_messages_sent_total",
				Help: "Total number of order messages sent to backend",
			},
			[]string{"backend", "account"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sellingview_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastAmount: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sellingview_last_order_amount",
				Help: "Amount of the last ingested order per account",
			},
			[]string{"account"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sellingview_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		reportsGenerated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sellingview_reports_generated_total",
				Help: "Total number of reports generated per account",
			},
			[]string{"account"},
		),
		opportunities: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sellingview_report_opportunities",
				Help: "Number of opportunities in the most recent report per account",
			},
			[]string{"account"},
		),
	}
}

// RecordMessageSent records an order message sent to a backend.
func (r *Recorder) RecordMessageSent(backend, accountID string) {
	r.messagesSent.WithLabelValues(backend, accountID).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastAmount records the amount of the last order seen for an account.
func (r *Recorder) RecordLastAmount(accountID string, amount float64) {
	r.lastAmount.WithLabelValues(accountID).Set(amount)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordReportGenerated counts a completed report run.
func (r *Recorder) RecordReportGenerated(accountID string) {
	r.reportsGenerated.WithLabelValues(accountID).Inc()
}

// RecordOpportunities records the opportunity count of the latest report.
func (r *Recorder) RecordOpportunities(accountID string, n int) {
	r.opportunities.WithLabelValues(accountID).Set(float64(n))
}

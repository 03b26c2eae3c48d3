package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	QuotesTotal   *prometheus.CounterVec
	QuoteDuration *prometheus.HistogramVec
	CarrierErrors *prometheus.CounterVec
	DroppedRows   *prometheus.CounterVec
}

// NewMetrics creates and registers metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates metrics registered on the given registerer; tests
// pass a fresh registry to avoid duplicate-registration panics.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QuotesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "correios_bridge_quotes_total",
				Help: "Total number of quote requests by status",
			},
			[]string{"status"},
		),
		QuoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "correios_bridge_quote_duration_seconds",
				Help:    "Quote request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		CarrierErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "correios_bridge_carrier_errors_total",
				Help: "Total Correios API errors by endpoint",
			},
			[]string{"endpoint"},
		),
		DroppedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "correios_bridge_dropped_tariff_rows_total",
				Help: "Tariff rows dropped from quote responses by reason",
			},
			[]string{"reason"},
		),
	}
	reg.MustRegister(m.QuotesTotal, m.QuoteDuration, m.CarrierErrors, m.DroppedRows)
	return m
}

// RecordQuote records one quote request outcome.
func (m *Metrics) RecordQuote(status string, duration float64) {
	m.QuotesTotal.WithLabelValues(status).Inc()
	m.QuoteDuration.WithLabelValues(status).Observe(duration)
}

// RecordCarrierError records a failed Correios API call.
func (m *Metrics) RecordCarrierError(endpoint string) {
	m.CarrierErrors.WithLabelValues(endpoint).Inc()
}

// RecordDroppedRow records a tariff row excluded from a response.
func (m *Metrics) RecordDroppedRow(reason string) {
	m.DroppedRows.WithLabelValues(reason).Inc()
}

package server

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the HTTP and prediction collectors
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	predictionsTotal *prometheus.CounterVec
	decoderTier      *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with registry
func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sonido_vox_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sonido_vox_http_request_duration_seconds",
				Help:    "Time taken for HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		predictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sonido_vox_predictions_total",
				Help: "Total number of prediction requests by outcome",
			},
			[]string{"outcome"}, // outcome: low_risk, high_risk, or an error kind
		),
		decoderTier: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sonido_vox_decoder_tier_total",
				Help: "Uploads decoded per decoder tier",
			},
			[]string{"tier"},
		),
		pipelineDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sonido_vox_pipeline_duration_seconds",
				Help:    "Time from upload to prediction",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
		),
	}

	if registry != nil {
		if err := registry.Register(m); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requestsTotal,
		m.requestDuration,
		m.predictionsTotal,
		m.decoderTier,
		m.pipelineDuration,
	}
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// RecordRequest records one finished HTTP request
func (m *Metrics) RecordRequest(method, path string, status int, seconds float64) {
	m.requestsTotal.WithLabelValues(method, path, fmt.Sprint(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(seconds)
}

// RecordPrediction records the outcome of one prediction request. tier is
// empty when decoding never succeeded.
func (m *Metrics) RecordPrediction(outcome, tier string, seconds float64) {
	m.predictionsTotal.WithLabelValues(outcome).Inc()
	if tier != "" {
		m.decoderTier.WithLabelValues(tier).Inc()
	}
	m.pipelineDuration.Observe(seconds)
}

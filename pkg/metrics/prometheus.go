package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	upstreamRequests *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	spotPrice        *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		upstreamRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "btcwatch_upstream_requests_total",
				Help: "Total number of upstream fetches by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		fallbacks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "btcwatch_fallbacks_total",
				Help: "Total number of degraded-path recoveries by kind",
			},
			[]string{"kind"},
		),
		spotPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "btcwatch_spot_price",
				Help: "Last resolved spot price by target currency",
			},
			[]string{"currency"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "btcwatch_upstream_duration_seconds",
				Help:    "Duration of upstream fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
	}
}

// RecordFetch records an upstream fetch outcome (success, error, timeout).
func (r *Recorder) RecordFetch(source, outcome string) {
	r.upstreamRequests.WithLabelValues(source, outcome).Inc()
}

// RecordFallback records a degraded-path recovery (widened FX range, latest
// rate retry, stale cache serve).
func (r *Recorder) RecordFallback(kind string) {
	r.fallbacks.WithLabelValues(kind).Inc()
}

// RecordSpotPrice records the last resolved spot price for a currency.
func (r *Recorder) RecordSpotPrice(currency string, price float64) {
	r.spotPrice.WithLabelValues(currency).Set(price)
}

// RecordLatency records upstream fetch latency in seconds.
func (r *Recorder) RecordLatency(source string, seconds float64) {
	r.latency.WithLabelValues(source).Observe(seconds)
}

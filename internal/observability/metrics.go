package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider call outcomes recorded by ObserveProviderCall.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeTimeout = "timeout"
)

// Metrics holds the Prometheus collectors exported on /metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cloudprice",
			Name:      "provider_calls_total",
			Help:      "Provider adapter calls by outcome.",
		}, []string{"provider", "outcome"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cloudprice",
			Name:      "provider_call_duration_seconds",
			Help:      "Latency of provider adapter calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cloudprice",
			Name:      "cache_lookups_total",
			Help:      "Aggregator cache lookups by query kind and result.",
		}, []string{"kind", "result"}),
	}

	m.registry.MustRegister(m.providerCalls, m.providerDuration, m.cacheLookups)

	return m
}

// ObserveProviderCall records one adapter call.
func (m *Metrics) ObserveProviderCall(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(provider, outcome).Inc()
	m.providerDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveCacheLookup records a hit or miss for a query kind.
func (m *Metrics) ObserveCacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

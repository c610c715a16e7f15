package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	upstreamCalls  *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	tokenRefreshes *prometheus.CounterVec
	notes          *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a Prometheus recorder registered on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		upstreamCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpull_upstream_calls_total",
				Help: "Upstream quote service calls by endpoint and result",
			},
			[]string{"endpoint", "result"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpull_cache_lookups_total",
				Help: "Cache lookups by cache and outcome",
			},
			[]string{"cache", "outcome"},
		),
		tokenRefreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpull_token_refreshes_total",
				Help: "Access token refreshes by result",
			},
			[]string{"result"},
		),
		notes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpull_quote_notes_total",
				Help: "Degraded or failed quotes by kind",
			},
			[]string{"kind"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockpull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordUpstreamCall counts one upstream call.
func (r *Recorder) RecordUpstreamCall(endpoint, result string) {
	r.upstreamCalls.WithLabelValues(endpoint, result).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (r *Recorder) RecordCacheLookup(cache string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.WithLabelValues(cache, outcome).Inc()
}

// RecordTokenRefresh counts a token refresh attempt outcome.
func (r *Recorder) RecordTokenRefresh(result string) {
	r.tokenRefreshes.WithLabelValues(result).Inc()
}

// RecordNote counts a quote returned with a note.
func (r *Recorder) RecordNote(kind string) {
	r.notes.WithLabelValues(kind).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Noop discards everything. Useful in tests and when metrics are disabled.
type Noop struct{}

func (Noop) RecordUpstreamCall(string, string) {}
func (Noop) RecordCacheLookup(string, bool)    {}
func (Noop) RecordTokenRefresh(string)         {}
func (Noop) RecordNote(string)                 {}
func (Noop) RecordError(string)                {}
func (Noop) RecordLatency(string, float64)     {}

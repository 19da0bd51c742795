package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketlens"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetches      *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	collects     *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New registers the collectors on reg, or on the default registry when reg is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetches_total",
				Help:      "Series fetches by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Response cache lookups by operation and result",
			},
			[]string{"op", "result"},
		),
		collects: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collects_total",
				Help:      "Per-symbol collect results",
			},
			[]string{"symbol", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_price",
				Help:      "Last stored close for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordFetch(source, outcome string) {
	r.fetches.WithLabelValues(source, outcome).Inc()
}

func (r *Recorder) RecordCacheLookup(op string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(op, result).Inc()
}

func (r *Recorder) RecordCollect(symbol string, ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	r.collects.WithLabelValues(symbol, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Noop discards every observation.
type Noop struct{}

func (Noop) RecordFetch(string, string)      {}
func (Noop) RecordCacheLookup(string, bool)  {}
func (Noop) RecordCollect(string, bool)      {}
func (Noop) RecordError(string)              {}
func (Noop) RecordLastPrice(string, float64) {}
func (Noop) RecordLatency(string, float64)   {}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "marketlens",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of analytics endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketlens",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by analytics endpoint and status",
		},
		[]string{"endpoint", "status"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors)
	})
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EngineLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pricepulse",
			Subsystem: "engine",
			Name:      "latency_seconds",
			Help:      "Latency of prediction and analysis endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	EngineErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pricepulse",
			Subsystem: "engine",
			Name:      "errors_total",
			Help:      "Errors by prediction and analysis endpoint",
		},
		[]string{"endpoint"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pricepulse",
			Subsystem: "engine",
			Name:      "cache_hits_total",
			Help:      "Analysis cache hits by endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(EngineLatency, EngineErrors, CacheHits)
	})
}

package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics recorded by the request pipeline.
// Pass the registry in; nothing registers against the global default.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RefreshTotal     *prometheus.CounterVec
	ForcedLogouts    prometheus.Counter
	RetriedRequests  prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskboard",
				Name:      "requests_total",
				Help:      "Total API requests issued through the pipeline",
			},
			[]string{"method", "outcome"}, // outcome=ok/error/expired
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taskboard",
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RefreshTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskboard",
				Name:      "token_refresh_total",
				Help:      "Silent token refresh attempts",
			},
			[]string{"result"}, // result=ok/error/shared
		),
		ForcedLogouts: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "taskboard",
				Name:      "forced_logouts_total",
				Help:      "Sessions terminated after an irrecoverable refresh failure",
			},
		),
		RetriedRequests: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "taskboard",
				Name:      "retried_requests_total",
				Help:      "Requests replayed once after a successful refresh",
			},
		),
	}
}

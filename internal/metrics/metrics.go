package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	Reg *prometheus.Registry

	Store  StoreMetrics
	API    APIMetrics
	Events EventMetrics
}

func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{Reg: reg}

	r.Store = StoreMetrics{
		OpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "s3s_store_ops_total",
			Help: "Total storage calls by operation and outcome",
		}, []string{"op", "status"}),
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "s3s_store_op_duration_seconds",
			Help:    "Storage call latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		Bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "s3s_store_bytes_total",
			Help: "Total bytes streamed to or from storage",
		}, []string{"direction"}),
	}

	r.API = APIMetrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "s3s_api_requests_total",
			Help: "Total API requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "s3s_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "s3s_api_rate_limited_total",
			Help: "Total API requests rejected by the per-client limiter",
		}),
		LimiterSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "s3s_api_ratelimit_cache_size",
			Help: "Current number of client limiter entries",
		}),
	}

	r.Events = EventMetrics{
		PublishedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "s3s_events_published_total",
			Help: "Total object events handed to Kafka",
		}),
		PublishErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "s3s_events_publish_errors_total",
			Help: "Total object event publishes that returned an error",
		}),
	}

	reg.MustRegister(
		r.Store.OpsTotal,
		r.Store.OpDuration,
		r.Store.Bytes,
		r.API.RequestsTotal,
		r.API.RequestDuration,
		r.API.RateLimited,
		r.API.LimiterSize,
		r.Events.PublishedTotal,
		r.Events.PublishErrorsTotal,
	)
	return r
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Reg, promhttp.HandlerOpts{})
}

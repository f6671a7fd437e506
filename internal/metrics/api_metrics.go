package metrics

import "github.com/prometheus/client_golang/prometheus"

type APIMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RateLimited     prometheus.Counter
	LimiterSize     prometheus.Gauge
}

type EventMetrics struct {
	PublishedTotal     prometheus.Counter
	PublishErrorsTotal prometheus.Counter
}

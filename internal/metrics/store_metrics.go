package metrics

import "github.com/prometheus/client_golang/prometheus"

type StoreMetrics struct {
	OpsTotal   *prometheus.CounterVec
	OpDuration *prometheus.HistogramVec
	Bytes      *prometheus.CounterVec
}

package metrics

import "github.com/passwordkeyorg/s3s/storage"

// Adapters keep internal packages decoupled from prometheus types.

type StoreAdapter struct{ M StoreMetrics }

type EventAdapter struct{ M EventMetrics }

func (a StoreAdapter) ObserveOp(op string, err error, seconds float64) {
	a.M.OpsTotal.WithLabelValues(op, status(err)).Inc()
	a.M.OpDuration.WithLabelValues(op).Observe(seconds)
}

func (a StoreAdapter) AddBytes(direction string, n int64) {
	if n <= 0 {
		return
	}
	a.M.Bytes.WithLabelValues(direction).Add(float64(n))
}

func (a EventAdapter) IncPublished()    { a.M.PublishedTotal.Inc() }
func (a EventAdapter) IncPublishError() { a.M.PublishErrorsTotal.Inc() }

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case storage.IsNotFound(err):
		return "not_found"
	}
	return "error"
}

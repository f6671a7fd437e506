package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/passwordkeyorg/s3s/internal/metrics"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func instrument(m metrics.APIMetrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		dur := time.Since(start).Seconds()

		path := routeLabel(r.URL.Path)
		m.RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, path).Observe(dur)
	})
}

// routeLabel keeps object keys out of metric labels.
func routeLabel(path string) string {
	switch {
	case path == "/healthz", path == "/v1/objects":
		return path
	case strings.HasPrefix(path, "/v1/objects/"):
		return "/v1/objects/{key}"
	default:
		return "other"
	}
}

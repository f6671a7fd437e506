// Package api serves a scope over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/passwordkeyorg/s3s/codec"
	"github.com/passwordkeyorg/s3s/internal/events"
	"github.com/passwordkeyorg/s3s/internal/metrics"
	"github.com/passwordkeyorg/s3s/internal/ratelimit"
	"github.com/passwordkeyorg/s3s/scope"
	"github.com/passwordkeyorg/s3s/storage"
)

const maxBody = 32 << 20

// EventSink receives change notifications. Publishing is best effort.
type EventSink interface {
	Publish(ctx context.Context, ev events.Event) error
}

type Deps struct {
	Logger   *slog.Logger
	Scope    *scope.Scope
	AdminKey string
	Metrics  *metrics.APIMetrics
	Limit    *ratelimit.Cache
	Events   EventSink
	Now      func() time.Time
}

type handler struct{ deps Deps }

func New(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	mux := http.NewServeMux()
	h := &handler{deps: deps}

	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /v1/objects", h.get)
	mux.HandleFunc("GET /v1/objects/{key...}", h.get)
	mux.HandleFunc("HEAD /v1/objects/{key...}", h.head)
	mux.HandleFunc("PUT /v1/objects/{key...}", h.put)
	mux.HandleFunc("DELETE /v1/objects/{key...}", h.delete)

	var out http.Handler = mux
	if deps.Limit != nil {
		out = h.limit(out)
	}
	if deps.Metrics != nil {
		out = instrument(*deps.Metrics, out)
	}
	return out
}

func (h *handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if h.deps.AdminKey == "" {
		return true
	}
	got := r.Header.Get("X-Admin-Key")
	if got == h.deps.AdminKey {
		return true
	}
	writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	return false
}

func (h *handler) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" && !h.deps.Limit.Allow(clientIP(r), h.deps.Now()) {
			if h.deps.Metrics != nil {
				h.deps.Metrics.RateLimited.Inc()
			}
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "rate limited"})
			return
		}
		if h.deps.Metrics != nil {
			h.deps.Metrics.LimiterSize.Set(float64(h.deps.Limit.Size()))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	key := keyOf(r)
	if len(key) == 0 {
		h.list(w, r, h.deps.Scope)
		return
	}
	res, err := h.deps.Scope.Get(r.Context(), key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if sub, ok := res.Scope(); ok {
		h.list(w, r, sub)
		return
	}
	v, _ := res.Value()
	c, _ := h.deps.Scope.Codec(key)
	w.Header().Set("Content-Type", c.ContentType)
	if err := c.Encode(w, v); err != nil {
		// headers are gone by now
		h.deps.Logger.Error("encode response failed", "uri", h.deps.Scope.URI(key), "err", err)
	}
}

func (h *handler) list(w http.ResponseWriter, r *http.Request, s *scope.Scope) {
	items, err := s.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"uri": s.URI(), "items": items})
}

func (h *handler) head(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	key := keyOf(r)
	n, err := h.deps.Scope.Size(r.Context(), key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if c, ok := h.deps.Scope.Codec(key); ok {
		w.Header().Set("Content-Type", c.ContentType)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(n, 10))
	w.WriteHeader(http.StatusOK)
}

func (h *handler) put(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	key := keyOf(r)
	c, ok := h.deps.Scope.Codec(key)
	if !ok {
		// Set rejects the key before the store is touched.
		h.fail(w, r, h.deps.Scope.Set(r.Context(), key, nil))
		return
	}
	v, err := c.DecodeValue(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.deps.Scope.Set(r.Context(), key, v); err != nil {
		h.fail(w, r, err)
		return
	}
	uri := h.deps.Scope.URI(key)
	ev := events.New(events.TypePut, uri, h.deps.Now())
	ev.Codec = c.Suffix
	h.publish(r, ev)
	writeJSON(w, http.StatusCreated, map[string]any{"uri": uri})
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	key := keyOf(r)
	if err := h.deps.Scope.Delete(r.Context(), key); err != nil {
		h.fail(w, r, err)
		return
	}
	h.publish(r, events.New(events.TypeDeleted, h.deps.Scope.URI(key), h.deps.Now()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) publish(r *http.Request, ev events.Event) {
	if h.deps.Events == nil {
		return
	}
	ev.RemoteIP = clientIP(r)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
	go func() {
		defer cancel()
		if err := h.deps.Events.Publish(ctx, ev); err != nil {
			h.deps.Logger.Warn("event publish failed", "type", ev.Type, "uri", ev.URI, "err", err)
		}
	}()
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var unsupported *scope.UnsupportedFormatError
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &unsupported):
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]any{"error": err.Error(), "known": unsupported.Known})
	case errors.As(err, &tooBig):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": "body too large"})
	case storage.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
	case errors.Is(err, codec.ErrDecode), errors.Is(err, codec.ErrEncode), errors.Is(err, storage.ErrInvalidPath):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.Is(err, storage.ErrAccess):
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "access denied"})
	default:
		h.deps.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "storage error"})
	}
}

func keyOf(r *http.Request) scope.Key {
	var key scope.Key
	for _, seg := range strings.Split(r.PathValue("key"), "/") {
		if seg != "" {
			key = append(key, seg)
		}
	}
	return key
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

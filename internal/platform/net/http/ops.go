package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"time"

	"ghscan/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthFunc reports whether the process can do its work
type HealthFunc func(ctx context.Context) error

// MountOps mounts GET /metrics (default prometheus registry) and GET /healthz
func MountOps(r chi.Router, health HealthFunc) {
	r.Method(stdhttp.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/healthz", func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
		if health != nil {
			if err := health(req.Context()); err != nil {
				WriteJSON(w, stdhttp.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		WriteJSON(w, stdhttp.StatusOK, map[string]string{"status": "ok"})
	})
}

// WriteJSON writes v with status; encoding failures are logged
func WriteJSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Named("http").Error().Err(err).Msg("write json")
	}
}

// AccessLog logs request duration and status; scrapes are frequent so normal requests log at debug
func AccessLog(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		sw := &capture{ResponseWriter: w, status: stdhttp.StatusOK}
		start := time.Now()

		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		log := logger.Named("http")
		evt := log.Debug()
		if elapsed >= 500*time.Millisecond {
			evt = log.Warn()
		}
		evt.Int("status", sw.status).
			Dur("elapsed", elapsed).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request done")
	})
}

type capture struct {
	stdhttp.ResponseWriter
	status int
}

func (c *capture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

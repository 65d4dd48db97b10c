// Package http serves the operational endpoints: liveness, readiness and a
// version banner. The domain itself is consumed as a library, so this is the
// only HTTP surface the process exposes.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskdesk/taskdesk/internal/adapter/otel"
	"github.com/taskdesk/taskdesk/internal/middleware"
)

// Check probes one dependency. A nil return means ready.
type Check func(ctx context.Context) error

// Handlers owns the operational endpoints and the readiness checks they
// report on.
type Handlers struct {
	log     *slog.Logger
	version string
	checks  map[string]Check
}

// NewHandlers creates the operational handler set. Checks are probed on
// every readiness request, in no particular order.
func NewHandlers(log *slog.Logger, version string, checks map[string]Check) *Handlers {
	return &Handlers{log: log, version: version, checks: checks}
}

// NewRouter builds the chi router with request-ID and tracing middleware
// applied to every route.
func NewRouter(h *Handlers, serviceName string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(otel.HTTPMiddleware(serviceName))

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)
	r.Get("/version", h.Version)
	return r
}

// Health handles GET /healthz. It answers as long as the process serves
// requests; dependency state is the readiness endpoint's concern.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /readyz. It probes every registered check and reports
// 503 with the per-check detail when any of them fails.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	detail := make(map[string]string, len(h.checks))
	ready := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			detail[name] = err.Error()
			ready = false
			h.log.WarnContext(ctx, "readiness check failed", "check", name, "error", err)
			continue
		}
		detail[name] = "ok"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"ready": ready, "checks": detail})
}

// Version handles GET /version.
func (h *Handlers) Version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": h.version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

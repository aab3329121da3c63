// Package health provides HTTP liveness and readiness handlers for the
// engine's operational endpoint.
//
//   - /healthz — liveness probe; always returns 200 OK.
//   - /readyz  — readiness probe; returns 200 only when all registered
//     [Probe] functions pass.
//
// Responses are JSON objects with a top-level "status" field ("ok" or
// "fail"), the process uptime, and a "probes" map with per-probe results.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds how long a single readiness probe may run.
const probeTimeout = 5 * time.Second

// Probe is a named readiness check. Run should return nil when the
// dependency is usable and an error describing the failure otherwise.
type Probe struct {
	// Name labels this probe in the JSON response (e.g. "session",
	// "realtime").
	Name string

	// Run checks the dependency. It must respect context cancellation.
	Run func(ctx context.Context) error
}

// report is the JSON body for both endpoints.
type report struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Probes map[string]string `json:"probes,omitempty"`
}

// Handler serves the /healthz and /readyz endpoints. The probe list is
// fixed at construction time, so the handler is safe for concurrent use.
type Handler struct {
	started time.Time
	probes  []Probe
}

// New creates a [Handler] that evaluates the given probes, in order, on
// each /readyz request.
func New(probes ...Probe) *Handler {
	p := make([]Probe, len(probes))
	copy(p, probes)
	return &Handler{started: time.Now(), probes: p}
}

// Healthz is the liveness probe. A process that can serve HTTP is alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{Status: "ok", Uptime: h.uptime()})
}

// Readyz evaluates every registered [Probe] and returns 200 only when all
// of them pass. Each probe runs under a [probeTimeout] deadline derived
// from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	probes := make(map[string]string, len(h.probes))
	allOK := true

	for _, p := range h.probes {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := p.Run(ctx)
		cancel()

		if err != nil {
			probes[p.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			probes[p.Name] = "ok"
		}
	}

	res := report{
		Status: "ok",
		Uptime: h.uptime(),
		Probes: probes,
	}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, res)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func (h *Handler) uptime() string {
	return time.Since(h.started).Round(time.Second).String()
}

// writeJSON encodes v with the given status code, falling back to a
// plain-text 500 when encoding fails.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}

// Package health provides HTTP health and readiness check handlers for the
// Grimoire render service.
//
// The package exposes two endpoints:
//
//   - /healthz — liveness probe; always returns 200 OK.
//   - /readyz  — readiness probe; returns 200 only when all registered
//     [Probe] functions pass.
//
// Responses are JSON objects with a top-level "status" field ("ok" or "fail")
// and a "checks" map containing the result of each named probe.
//
// Grimoire-specific probes are built with [TemplateStoreProbe] and
// [CacheProbe].
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MrWong99/grimoire/internal/rendercache"
	"github.com/MrWong99/grimoire/internal/template"
)

// probeTimeout is the maximum time a single readiness probe may take before
// the context is cancelled.
const probeTimeout = 5 * time.Second

// Probe is a named readiness check. The Check function should return nil
// when the dependency is healthy and a non-nil error describing the failure
// otherwise.
type Probe struct {
	// Name is a short label for this probe (e.g. "templates", "cache").
	// It appears as a key in the JSON response.
	Name string

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

// TemplateLister is the subset of the template store the readiness probe
// needs. *template.MemStore and *template.PostgresStore both satisfy it.
type TemplateLister interface {
	List(ctx context.Context) ([]template.Definition, error)
}

// TemplateStoreProbe reports ready when the template store can be listed and
// holds at least one definition. A service with zero templates can resolve
// primaries but cannot expand anything, which almost always means the packs
// failed to load.
func TemplateStoreProbe(store TemplateLister) Probe {
	return Probe{
		Name: "templates",
		Check: func(ctx context.Context) error {
			defs, err := store.List(ctx)
			if err != nil {
				return err
			}
			if len(defs) == 0 {
				return fmt.Errorf("no template definitions loaded")
			}
			return nil
		},
	}
}

// CacheProbe reports ready when the render cache is reachable. The cache is
// in-process, so this only fails when the service was wired without one.
func CacheProbe(cache *rendercache.Cache) Probe {
	return Probe{
		Name: "cache",
		Check: func(context.Context) error {
			if cache == nil {
				return fmt.Errorf("render cache not configured")
			}
			cache.Stats()
			return nil
		},
	}
}

// response is the JSON body for both health endpoints.
type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves /healthz and /readyz endpoints. It is safe for concurrent
// use; the probe list is fixed at construction time.
type Handler struct {
	probes []Probe
}

// New creates a [Handler] that evaluates the given probes on each /readyz
// request, sequentially in the order provided.
func New(probes ...Probe) *Handler {
	p := make([]Probe, len(probes))
	copy(p, probes)
	return &Handler{probes: p}
}

// Healthz is a liveness probe that always returns 200 OK. A running process
// that can serve HTTP is considered alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

// Readyz is a readiness probe that returns 200 only when every registered
// [Probe] passes. Each probe gets a context with a [probeTimeout] deadline
// derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.probes))
	allOK := true

	for _, p := range h.probes {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := p.Check(ctx)
		cancel()

		if err != nil {
			checks[p.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[p.Name] = "ok"
		}
	}

	res := response{
		Status: "ok",
		Checks: checks,
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

// writeJSON encodes v as JSON and writes it with the given status code. On
// encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}

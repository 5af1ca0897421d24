// Package healthserver exposes the GET /health and GET /stats endpoints
// every stage binary serves. Routing and timeouts are grounded on the
// teacher's pkg/server/providers/rest server (gorilla/mux, the same
// Read/Write/Idle timeout defaults); the handlers themselves are new,
// backed by the teacher's own o11y.HealthRegistry. Serve/shutdown is
// delegated to internal/httputil.ServerLifecycle rather than each binary
// hand-rolling its own goroutine+select, the way the teacher's several
// server adapters all share one lifecycle helper.
package healthserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lookatitude/hey-raven/internal/httputil"
	"github.com/lookatitude/hey-raven/o11y"
)

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 30 * time.Second
	idleTimeout  = 120 * time.Second
)

// StatsFunc returns the stage's current counters as a JSON-marshalable value.
type StatsFunc func() any

// Server serves /health and /stats for the lifetime of a stage binary.
type Server struct {
	addr    string
	handler http.Handler
	life    httputil.ServerLifecycle
}

// New builds a Server serving /health (via registry) and /stats (via
// statsFn) on addr. Call Serve to run it.
func New(addr string, registry *o11y.HealthRegistry, statsFn StatsFunc) *Server {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		results := registry.CheckAll(r.Context())
		status := http.StatusOK
		for _, res := range results {
			if res.Status != o11y.Healthy {
				status = http.StatusServiceUnavailable
				break
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(results)
	}).Methods(http.MethodGet)

	router.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if statsFn == nil {
			json.NewEncoder(w).Encode(map[string]any{})
			return
		}
		json.NewEncoder(w).Encode(statsFn())
	}).Methods(http.MethodGet)

	return &Server{addr: addr, handler: router}
}

// Serve runs the server until ctx is canceled, then shuts it down with a
// grace period. It returns ctx.Err() on a clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	return s.life.Serve(ctx, s.addr, s.handler, readTimeout, writeTimeout, idleTimeout, "healthserver")
}

// Shutdown gracefully stops the server ahead of ctx cancellation, if it is
// already running.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.life.Shutdown(ctx, "healthserver")
}

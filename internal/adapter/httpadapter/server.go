package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/restaurant-grades-etl/internal/domain"
)

// GradeLookup returns the latest published row for a permit.
type GradeLookup interface {
	Latest(permit string) (domain.Restaurant, bool)
}

// Server exposes health, readiness, metrics and grade lookup endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /grades/{permit} routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, grades GradeLookup, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /grades/{permit}", handleGrade(grades))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleGrade(grades GradeLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		permit := r.PathValue("permit")
		rest, ok := grades.Latest(permit)
		if !ok {
			sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{
				"error":  "permit not found",
				"permit": permit,
			})
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, rest)
	}
}

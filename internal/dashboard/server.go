// Package dashboard exposes the aggregator's state over HTTP for operator
// tooling: JSON snapshots of the feed buffers, aggregates, and presence.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/gitpusher/pushkit/internal/metrics"
	"github.com/gitpusher/pushkit/internal/telemetry"
)

// Config contains dashboard server configuration.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Verbose      bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8090"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
}

// Server serves the dashboard API.
type Server struct {
	config     *Config
	aggregator *telemetry.Aggregator
	server     *http.Server
}

// New creates a dashboard server over the aggregator.
func New(cfg *Config, aggregator *telemetry.Aggregator) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("aggregator is required")
	}
	cfg.SetDefaults()

	s := &Server{config: cfg, aggregator: aggregator}
	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.countRequests)

	r.Get("/healthz", s.handleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/feeds/{feed}", s.handleFeed)
		r.Get("/stats", s.handleStats)
		r.Get("/presence", s.handlePresence)
	})
	return r
}

// Start runs the server until it is shut down.
func (s *Server) Start() error {
	log.Printf("dashboard server listening on %s", s.config.Address)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("shutting down dashboard server")
	return s.server.Shutdown(ctx)
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		metrics.HTTPRequestsTotal.WithLabelValues(
			r.Method, r.URL.Path, strconv.Itoa(ww.Status()),
		).Inc()
		s.logf("%s %s -> %d", r.Method, r.URL.Path, ww.Status())
	})
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.config.Verbose {
		log.Printf("[dashboard] "+format, args...)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	view := s.aggregator.Snapshot(r.Context())
	degraded := 0
	for _, h := range view.Health {
		if h != telemetry.HealthHealthy {
			degraded++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"degraded": degraded,
		"health":   view.Health,
	})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	view := s.aggregator.Snapshot(r.Context())
	switch chi.URLParam(r, "feed") {
	case "ai":
		writeJSON(w, http.StatusOK, map[string]any{
			"samples":    view.AISamples,
			"likelihood": view.AILikelihood,
			"health":     view.Health[telemetry.ComponentAIStream],
		})
	case "traffic":
		writeJSON(w, http.StatusOK, map[string]any{
			"samples": view.TrafficSamples,
			"health":  view.Health[telemetry.ComponentTrafficStream],
		})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown feed"})
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	view := s.aggregator.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":  view.Stats,
		"health": view.Health[telemetry.ComponentStatsPoll],
	})
}

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	view := s.aggregator.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"presence": view.Presence,
		"health":   view.Health[telemetry.ComponentPresencePoll],
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("dashboard: encode response: %v", err)
	}
}

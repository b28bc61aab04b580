// Package server contains the HTTP server for the control-plane API.
package server

import (
	"context"
	"net/http"
	"time"

	"robotplane/internal/server/handlers"
	"robotplane/internal/server/middleware"
)

// Config holds the server's route-level settings.
type Config struct {
	Addr           string
	OperatorToken  string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server is the HTTP server for the control-plane API.
type Server struct {
	httpServer *http.Server
}

// New creates a new control-plane server.
func New(cfg Config, h *handlers.Handlers, metricsHandler http.Handler) *Server {
	authMW := middleware.RequireOperatorAuth(cfg.OperatorToken)
	rateMW := middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	// Task-intent endpoints create a mission and return immediately;
	// execution continues in the background.
	mux.Handle("POST /tasks/local-pickup", rateMW(authMW(http.HandlerFunc(h.LocalPickup))))
	mux.Handle("POST /tasks/local-dropoff", rateMW(authMW(http.HandlerFunc(h.LocalDropoff))))
	mux.Handle("POST /tasks/zone-workflow", rateMW(authMW(http.HandlerFunc(h.ZoneWorkflow))))

	// Query/cancel surface over the mission queue.
	mux.Handle("GET /missions", authMW(http.HandlerFunc(h.ListMissions)))
	mux.Handle("GET /missions/{id}", authMW(http.HandlerFunc(h.GetMission)))
	mux.Handle("POST /missions/{id}/cancel", authMW(http.HandlerFunc(h.CancelMission)))
	mux.Handle("POST /missions/cancel-all", authMW(http.HandlerFunc(h.CancelAllMissions)))
	mux.Handle("POST /missions/clear", authMW(http.HandlerFunc(h.ClearMissions)))
	mux.Handle("GET /audit", authMW(http.HandlerFunc(h.GetAudit)))

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

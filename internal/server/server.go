package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/floodgatehq/floodgate/internal/handler"
	"github.com/floodgatehq/floodgate/internal/model"
	"github.com/floodgatehq/floodgate/internal/server/middleware"
	"github.com/floodgatehq/floodgate/internal/service"
	"github.com/floodgatehq/floodgate/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	AuthRateLimit   int // requests per minute per IP on credential endpoints
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		AuthRateLimit:   30,
	}
}

// Server is the top-level HTTP server for Floodgate. It owns the Chi router,
// the backing store, and the auth and API key services.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	authSvc    *service.AuthService
	keySvc     *service.APIKeyService
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, st *store.Store, authSvc *service.AuthService, keySvc *service.APIKeyService, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		authSvc: authSvc,
		keySvc:  keySvc,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger, s.store))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	authHandler := handler.NewAuthHandler(s.authSvc, s.store, s.logger)
	keyHandler := handler.NewAPIKeyHandler(s.keySvc, s.logger)
	svcHandler := handler.NewServiceHandler(s.store, s.logger)
	adminHandler := handler.NewAdminHandler(s.store, s.logger)

	r.Route("/api", func(r chi.Router) {

		// Credential endpoints: unauthenticated, rate limited per IP to
		// slow down brute forcing.
		r.Group(func(r chi.Router) {
			if s.cfg.AuthRateLimit > 0 {
				r.Use(middleware.RateLimit(s.cfg.AuthRateLimit))
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
		})

		// Everything below requires an access token or API key.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.authSvc, s.keySvc, s.store, s.logger))

			r.Post("/logout", authHandler.Logout)
			r.Get("/user", authHandler.Me)

			r.Get("/api-keys", keyHandler.List)
			r.Post("/api-keys", keyHandler.Create)
			r.Delete("/api-keys/{keyId}", keyHandler.Delete)

			r.Get("/services", svcHandler.List)
			r.Post("/services", svcHandler.Create)
			r.Put("/services/{serviceName}", svcHandler.Update)
			r.Delete("/services/{serviceName}", svcHandler.Delete)

			// Admin-only surface.
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleAdmin))

				r.Get("/users", adminHandler.ListUsers)
				r.Patch("/users/{userId}", adminHandler.UpdateUser)
				r.Get("/logs", adminHandler.ListLogs)
			})
		})
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the backing store
// answers a ping, 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if err := s.store.Ping(r.Context()); err != nil {
		checks["store"] = "error: " + err.Error()
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the store.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("store close", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

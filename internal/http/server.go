package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davidbz/cloudprice/internal/auth"
	"github.com/davidbz/cloudprice/internal/config"
	"github.com/davidbz/cloudprice/internal/http/middleware"
	"github.com/davidbz/cloudprice/internal/observability"
)

// Server represents the HTTP server.
type Server struct {
	config      config.ServerConfig
	handler     *Handler
	auth        *auth.Service
	metrics     *observability.Metrics
	middlewares middleware.Middleware
	srv         *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg *config.ServerConfig,
	handler *Handler,
	authService *auth.Service,
	metrics *observability.Metrics,
	middlewares middleware.Middleware,
) *Server {
	return &Server{
		config:      *cfg,
		handler:     handler,
		auth:        authService,
		metrics:     metrics,
		middlewares: middlewares,
		srv:         nil,
	}
}

// Routes returns the full handler tree with middleware applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/compute/prices", s.handler.HandlePrices)
	mux.HandleFunc("GET /api/v1/compute/compare", s.handler.HandleCompare)
	mux.HandleFunc("GET /api/v1/regions", s.handler.HandleRegions)
	mux.HandleFunc("GET /api/v1/instance-types", s.handler.HandleInstanceTypes)
	mux.HandleFunc("DELETE /api/v1/cache", s.handler.HandleCacheDelete)
	mux.HandleFunc("GET /health", s.handler.HandleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	if s.auth != nil {
		mux.HandleFunc("GET /api/v1/auth/providers", s.auth.HandleProviders)
		mux.HandleFunc("GET /api/v1/auth/login/{provider}", s.auth.HandleLogin)
		mux.HandleFunc("GET /api/v1/auth/auth/{provider}/callback", s.auth.HandleCallback)
		mux.HandleFunc("GET /api/v1/auth/azure/subscriptions", s.auth.HandleAzureSubscriptions)
	}

	if s.middlewares == nil {
		return mux
	}
	return s.middlewares(mux)
}

// Run starts the server and shuts it down gracefully once ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.srv = s.build()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.serve()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(s.config.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) build() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Routes(),
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
	}
}

func (s *Server) serve() error {
	observability.FromContext(context.Background()).Info("starting HTTP server",
		observability.Int("port", s.config.Port))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.FromContext(ctx).Info("shutting down HTTP server")

	if s.srv == nil {
		return nil
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

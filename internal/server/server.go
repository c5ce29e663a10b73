package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ehn-dcc-development/hcert-service/internal/config"
	"github.com/ehn-dcc-development/hcert-service/internal/logger"
	"github.com/ehn-dcc-development/hcert-service/internal/server/handlers"
	servermiddleware "github.com/ehn-dcc-development/hcert-service/internal/server/middleware"
	"github.com/ehn-dcc-development/hcert-service/internal/version"
)

type Server struct {
	config *config.ServerEnvironment
	deps   *Dependencies
	logger *slog.Logger
	router *chi.Mux
}

func NewServer(
	cfg *config.ServerEnvironment,
	deps *Dependencies,
	logger *slog.Logger,
) *Server {
	server := &Server{
		config: cfg,
		deps:   deps,
		logger: logger,
		router: chi.NewRouter(),
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server
}

// Router returns the configured router (used in tests)
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logger.RequestLogging(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(servermiddleware.SecurityHeaders(s.config.Environment))
	s.router.Use(servermiddleware.Metrics(s.deps.Metrics.Requests, s.deps.Metrics.Duration))
	s.router.Use(servermiddleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
	s.router.Use(servermiddleware.RequestSizeLimit(s.config.MaxRequestSize))
}

func (s *Server) registerRoutes() {
	tokens := s.deps.Metrics.Tokens

	s.router.Get("/health/live", handlers.HandleHealth)
	s.router.Get("/health/ready", handlers.HandleReadiness(s.deps.TrustList))
	s.router.Get("/version", handlers.HandleVersion(version.Get()))
	s.router.Get("/.well-known/jwks.json", handlers.HandleJWKS(s.deps.JWKS))
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{}))

	s.router.Route("/cert", func(r chi.Router) {
		r.Get("/listv2", handlers.HandleTrustListContent(s.deps.TrustList))
		r.Get("/sigv2", handlers.HandleTrustListSignature(s.deps.TrustList))
		r.Get("/{kid}", handlers.HandleCertificateByKeyID(s.deps.TrustList))
	})

	s.router.Post("/generate", handlers.HandleGenerate(s.deps.Chain, tokens))
	s.router.Post("/verify", handlers.HandleVerify(s.deps.Chain, tokens))
	s.router.Get("/qrc/{sample}", handlers.HandleSampleToken(s.deps.Chain, tokens))
	s.router.Get("/testsuite", handlers.HandleTestSuite(s.deps.Suite))
	s.router.Post("/testsuite", handlers.HandleTestSuite(s.deps.Suite))
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr))

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	apisetup "indian-airlines-ivr/internal/api"
	"indian-airlines-ivr/internal/bootstrap"
	"indian-airlines-ivr/internal/config"
	"indian-airlines-ivr/internal/observability"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var devOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	deps       *bootstrap.Dependencies
	config     *config.Config
	logger     *observability.Logger
	errCh      chan error

	stopJobs context.CancelFunc
	jobsDone chan struct{}
}

// New creates a new Server instance
func New(cfg *config.Config, deps *bootstrap.Dependencies, logger *observability.Logger) *Server {
	return &Server{
		config: cfg,
		deps:   deps,
		logger: logger,
		errCh:  make(chan error, 1),
	}
}

// Setup configures the HTTP router with middleware and routes
func (s *Server) Setup() {
	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = gin.New()

	s.router.Use(cors.New(corsConfig(s.config)))
	s.router.Use(observability.Middleware(s.logger))

	rootRouter := s.router.Group("/")
	api := apisetup.New(
		rootRouter,
		s.deps.AuthHandler,
		s.deps.ManifestHandler,
		s.deps.Readiness,
		s.deps.ValidateLimiter,
	)
	api.RegisterRoutes()
}

// Handler returns the configured router. Setup must be called first.
func (s *Server) Handler() http.Handler {
	return s.router
}

func corsConfig(cfg *config.Config) cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins

	// Allow localhost in non-production
	if !cfg.IsProduction() {
		corsConfig.AllowOrigins = append(append([]string{}, corsConfig.AllowOrigins...), devOrigins...)
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	return corsConfig
}

// Start begins listening for HTTP requests
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Server.Port),
		Handler: s.router,
	}

	jobsCtx, cancel := context.WithCancel(ctx)
	s.stopJobs = cancel
	s.jobsDone = make(chan struct{})
	go func() {
		defer close(s.jobsDone)
		if s.deps.Scheduler != nil {
			s.deps.Scheduler.Run(jobsCtx)
		}
	}()

	// Run the server in a goroutine so that it doesn't block
	go func() {
		s.logger.Info(ctx, fmt.Sprintf("Server starting on port %d", s.config.Server.Port))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "server failed to start", err)
			s.errCh <- err
		}
	}()

	return nil
}

// WaitForShutdown blocks until a shutdown signal is received or the listener
// fails, then gracefully shuts down
func (s *Server) WaitForShutdown(ctx context.Context) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var serveErr error
	select {
	case <-quit:
	case serveErr = <-s.errCh:
	case <-ctx.Done():
	}
	s.logger.Info(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.stopJobs()
	select {
	case <-s.jobsDone:
	case <-shutdownCtx.Done():
		s.logger.Warn(ctx, "scheduled jobs did not stop before the shutdown timeout")
	}

	s.deps.Cleanup()

	if serveErr != nil {
		return fmt.Errorf("server stopped: %w", serveErr)
	}
	s.logger.Info(ctx, "Server exited gracefully")
	return nil
}

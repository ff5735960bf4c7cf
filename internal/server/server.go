// Package server wires the whole application together: it owns the database
// connection and the sandbox invoker, assembles the service and handler
// layers, mounts the routes, and runs the HTTP server with graceful
// shutdown. main.go stays minimal — load config, build a Server, Start it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sufal6785/agentbox/internal/auth"
	"github.com/sufal6785/agentbox/internal/config"
	"github.com/sufal6785/agentbox/internal/executor"
	"github.com/sufal6785/agentbox/internal/executor/docker"
	"github.com/sufal6785/agentbox/internal/handler"
	"github.com/sufal6785/agentbox/internal/language"
	"github.com/sufal6785/agentbox/internal/middleware"
	sqliteRepo "github.com/sufal6785/agentbox/internal/repository/sqlite"
	"github.com/sufal6785/agentbox/internal/service"
	"github.com/sufal6785/agentbox/internal/workspace"
)

// unavailableInvoker stands in when no container runtime could be reached
// at startup. Every run reports a spawn error, which classifies as the
// tooling-unavailable result.
type unavailableInvoker struct{}

func (unavailableInvoker) Run(ctx context.Context, ws *workspace.Workspace, profile language.Profile, timeout time.Duration) executor.Outcome {
	return executor.Outcome{SpawnErr: errors.New("container runtime unavailable")}
}

// Server holds the router and the resources that must be released on
// shutdown. The docker invoker may be nil when the daemon is unreachable at
// startup; execution requests are then answered with the tooling-unavailable
// result instead of the server refusing to boot.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	invoker *docker.Invoker
}

// New assembles the full dependency chain: storage, sandbox, services,
// handlers, routes. Each layer receives interfaces, not concretions, so the
// wiring here is the only place that knows about sqlite or docker.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	registry := language.NewRegistry()

	invoker, err := docker.New(docker.Config{
		MemoryLimit: cfg.Sandbox.MemoryLimitBytes,
		CPULimit:    cfg.Sandbox.CPULimit,
		PidsLimit:   cfg.Sandbox.PidsLimit,
		PullOnStart: cfg.Sandbox.PullImagesOnStart,
	}, registry, logger)
	if err != nil {
		// A dead daemon is an operational state, not a config error;
		// unavailableInvoker answers requests until it comes back.
		logger.Warn("docker unavailable at startup, executions will be rejected",
			slog.String("error", err.Error()))
		invoker = nil
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		invoker: invoker,
	}

	if err := s.setupRoutes(registry); err != nil {
		db.Close()
		if invoker != nil {
			invoker.Close()
		}
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes(registry *language.Registry) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.TokenLifetime)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	var github *auth.GitHubProvider
	if s.config.Auth.GitHubClientID != "" {
		github = auth.NewGitHubProvider(
			s.config.Auth.GitHubClientID,
			s.config.Auth.GitHubClientSecret,
			s.config.Auth.GitHubCallbackURL,
		)
	}

	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.logger)

	var invoker executor.Invoker
	if s.invoker != nil {
		invoker = s.invoker
	} else {
		invoker = unavailableInvoker{}
	}

	execService := service.NewExecutionService(registry, invoker, s.db, service.ExecutionConfig{
		MaxCodeBytes:   s.config.Sandbox.MaxCodeBytes,
		DefaultTimeout: s.config.Sandbox.DefaultTimeout,
		MaxTimeout:     s.config.Sandbox.MaxTimeout,
		MaxConcurrent:  s.config.Sandbox.MaxConcurrent,
		WorkspaceRoot:  s.config.Sandbox.WorkspaceRoot,
	}, s.logger)

	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	execHandler := handler.NewExecuteHandler(execService, s.logger)
	statsHandler := handler.NewStatsHandler(execService, s.db, s.logger)

	var sandboxPinger handler.Pinger
	if s.invoker != nil {
		sandboxPinger = s.invoker
	}
	healthHandler := handler.NewHealthHandler(sandboxPinger, s.db)

	limiter := middleware.NewRateLimiter(s.config.Server.RateLimitRPS, s.config.Server.RateLimitBurst)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.With(limiter.Handler).Post("/execute", execHandler.HandleExecute)
		r.Get("/languages", execHandler.HandleLanguages)

		r.With(auth.RequireAdmin()).Get("/stats", statsHandler.HandleStats)
	})

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	return nil
}

// Handler exposes the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, close
// the sandbox client and the database.
func (s *Server) Start() error {
	defer s.db.Close()
	if s.invoker != nil {
		defer s.invoker.Close()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Server.Port),
		Handler: s.router,
		// ReadTimeout stays short; WriteTimeout must cover the longest
		// permitted execution plus container overhead.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.config.Sandbox.MaxTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("database", s.config.Storage.DBPath),
			slog.Bool("sandbox", s.invoker != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Drain window sized to the execution budget so an in-flight
		// sandbox run can finish instead of being cut mid-container.
		ctx, cancel := context.WithTimeout(context.Background(), s.config.Sandbox.MaxTimeout+15*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

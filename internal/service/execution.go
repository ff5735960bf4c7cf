// Package service contains the business logic layer: execution
// orchestration and authentication. Handlers parse HTTP and delegate here;
// repositories and the sandbox invoker are injected as interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sufal6785/agentbox/internal/apperror"
	"github.com/sufal6785/agentbox/internal/executor"
	"github.com/sufal6785/agentbox/internal/language"
	"github.com/sufal6785/agentbox/internal/metrics"
	"github.com/sufal6785/agentbox/internal/model"
	"github.com/sufal6785/agentbox/internal/repository"
	"github.com/sufal6785/agentbox/internal/workspace"
)

// ExecutionConfig holds the request-validation and scheduling knobs of the
// execution service. Container resource limits live in the invoker's own
// config — they are not request-facing.
type ExecutionConfig struct {
	// MaxCodeBytes caps the submitted source size.
	MaxCodeBytes int
	// DefaultTimeout applies when a request doesn't specify a budget.
	DefaultTimeout time.Duration
	// MaxTimeout caps the budget a request may ask for.
	MaxTimeout time.Duration
	// MaxConcurrent bounds parallel executions. <= 0 disables the bound.
	MaxConcurrent int
	// WorkspaceRoot is the parent directory for per-execution workspaces.
	// Empty means the OS temp dir.
	WorkspaceRoot string
}

// DefaultExecutionConfig returns the reference limits.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		MaxCodeBytes:   10_000,
		DefaultTimeout: 15 * time.Second,
		MaxTimeout:     60 * time.Second,
		MaxConcurrent:  8,
	}
}

// ExecutionService runs untrusted code through the sandbox and records the
// outcome. It is stateless apart from the slot gate: every call resolves
// its own profile, owns its own workspace and container, and shares nothing
// with concurrent calls.
type ExecutionService struct {
	registry *language.Registry
	invoker  executor.Invoker
	logs     repository.ExecutionLogRepository
	gate     *gate
	config   ExecutionConfig
	logger   *slog.Logger
}

// NewExecutionService wires the execution pipeline.
func NewExecutionService(
	registry *language.Registry,
	invoker executor.Invoker,
	logs repository.ExecutionLogRepository,
	cfg ExecutionConfig,
	logger *slog.Logger,
) *ExecutionService {
	return &ExecutionService{
		registry: registry,
		invoker:  invoker,
		logs:     logs,
		gate:     newGate(cfg.MaxConcurrent),
		config:   cfg,
		logger:   logger,
	}
}

// Languages lists the supported language profiles.
func (s *ExecutionService) Languages() []language.Profile {
	return s.registry.List()
}

// Execute validates the request, runs it in the sandbox, classifies the
// outcome, and appends an audit record.
//
// Caller errors (empty or oversized code, unknown language) return an
// apperror before any filesystem or container work happens. Infrastructure
// and user-code failures come back as a classified Result, never an error —
// every call that passes validation produces exactly one Result and leaves
// no workspace or container behind.
func (s *ExecutionService) Execute(ctx context.Context, actorID, code, languageID string, timeoutSeconds int) (executor.Result, error) {
	if strings.TrimSpace(code) == "" {
		return executor.Result{}, apperror.ValidationFailed("code", "code is required")
	}
	if len(code) > s.config.MaxCodeBytes {
		return executor.Result{}, apperror.ValidationFailed("code",
			fmt.Sprintf("code too large (max %d bytes)", s.config.MaxCodeBytes))
	}

	profile, err := s.registry.Resolve(languageID)
	if err != nil {
		if errors.Is(err, language.ErrUnsupportedLanguage) {
			return executor.Result{}, apperror.ValidationFailed("language",
				fmt.Sprintf("unsupported language: %s", languageID))
		}
		return executor.Result{}, fmt.Errorf("resolving language: %w", err)
	}

	timeout := s.config.DefaultTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	if timeout > s.config.MaxTimeout {
		timeout = s.config.MaxTimeout
	}

	if err := s.gate.acquire(ctx); err != nil {
		return executor.Result{}, fmt.Errorf("waiting for execution slot: %w", err)
	}
	defer s.gate.release()

	req := executor.Request{Code: []byte(code), Language: profile.ID, Timeout: timeout}
	res := s.run(ctx, req, profile)

	s.record(actorID, profile.ID, res)

	s.logger.Info("code executed",
		slog.String("actor", actorID),
		slog.String("language", profile.ID),
		slog.String("fingerprint", res.Fingerprint),
		slog.String("result", res.Kind.String()),
		slog.Duration("elapsed", res.Elapsed),
	)

	return res, nil
}

// run prepares the workspace, invokes the sandbox, and classifies. The
// workspace is destroyed before this function returns, on every path.
func (s *ExecutionService) run(ctx context.Context, req executor.Request, profile language.Profile) executor.Result {
	ws, err := workspace.Create(s.config.WorkspaceRoot, profile.Filename, req.Code)
	if err != nil {
		// Environment fault, not user code: no container was spawned.
		s.logger.Error("failed to prepare workspace", slog.String("error", err.Error()))
		return executor.Result{
			Kind:        executor.KindInternalError,
			Output:      "Execution failed due to an internal error",
			Fingerprint: executor.Fingerprint(req.Code),
		}
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			s.logger.Error("failed to remove workspace",
				slog.String("path", ws.Root()), slog.String("error", err.Error()))
		}
	}()

	metrics.ExecutionsInFlight.Inc()
	out := s.invoker.Run(ctx, ws, profile, req.Timeout)
	metrics.ExecutionsInFlight.Dec()

	return executor.Classify(out, req)
}

// record persists the audit entry and bumps metrics. Persistence failures
// are logged, not surfaced — the user already has their result.
func (s *ExecutionService) record(actorID, languageID string, res executor.Result) {
	metrics.ExecutionsTotal.WithLabelValues(languageID, res.Kind.String()).Inc()
	metrics.ExecutionDuration.WithLabelValues(languageID).Observe(res.Seconds())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.logs.Insert(ctx, &model.ExecutionRecord{
		ActorID:       actorID,
		Language:      languageID,
		Fingerprint:   res.Fingerprint,
		ExecutionTime: res.Seconds(),
		Success:       res.Success(),
	})
	if err != nil {
		s.logger.Error("failed to log execution", slog.String("error", err.Error()))
	}
}

// Stats aggregates the execution log for the admin endpoint.
func (s *ExecutionService) Stats(ctx context.Context) (*model.ExecutionStats, error) {
	stats, err := s.logs.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading execution stats: %w", err)
	}
	return stats, nil
}

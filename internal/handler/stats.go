package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sufal6785/agentbox/internal/model"
	"github.com/sufal6785/agentbox/internal/repository"
)

// StatsSource is the slice of the execution service the stats handler needs.
type StatsSource interface {
	Stats(ctx context.Context) (*model.ExecutionStats, error)
}

// StatsHandler serves the admin-only execution statistics.
type StatsHandler struct {
	stats  StatsSource
	users  repository.UserRepository
	logger *slog.Logger
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(stats StatsSource, users repository.UserRepository, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, users: users, logger: logger}
}

// HandleStats returns aggregate execution statistics.
//
// HTTP: GET /api/stats (behind RequireAuth + RequireAdmin)
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to load execution stats", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	totalUsers, err := h.users.Count(r.Context())
	if err != nil {
		h.logger.Error("failed to count users", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"totalUsers":           totalUsers,
		"totalExecutions":      stats.TotalExecutions,
		"successfulExecutions": stats.SuccessfulExecutions,
		"successRate":          stats.SuccessRate,
		"languageUsage":        stats.LanguageUsage,
	})
}

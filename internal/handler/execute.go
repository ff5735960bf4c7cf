// Package handler contains the HTTP layer: request parsing, response
// shaping, and nothing else. Business rules live in the service layer.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sufal6785/agentbox/internal/auth"
	"github.com/sufal6785/agentbox/internal/executor"
	"github.com/sufal6785/agentbox/internal/language"
)

// ExecutionRunner is the slice of the execution service this handler needs.
type ExecutionRunner interface {
	Execute(ctx context.Context, actorID, code, languageID string, timeoutSeconds int) (executor.Result, error)
	Languages() []language.Profile
}

// ExecuteRequest is the wire format of POST /api/execute.
type ExecuteRequest struct {
	Code           string `json:"code"`
	Language       string `json:"language"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// ExecuteResponse is the wire format of an execution result.
type ExecuteResponse struct {
	Output               string  `json:"output"`
	Success              bool    `json:"success"`
	ExecutionTimeSeconds float64 `json:"executionTimeSeconds"`
	Fingerprint          string  `json:"fingerprint"`
}

// ExecuteHandler serves code execution and the language listing.
type ExecuteHandler struct {
	runner ExecutionRunner
	logger *slog.Logger
}

// NewExecuteHandler creates an ExecuteHandler.
func NewExecuteHandler(runner ExecutionRunner, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{runner: runner, logger: logger}
}

// HandleExecute runs a code submission for the authenticated user.
//
// HTTP: POST /api/execute (behind RequireAuth)
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// RequireAuth guards this route; reaching here without an identity
		// is a wiring bug, not a client error.
		h.logger.Error("execute handler reached without identity")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "internal_error", Message: "An internal error occurred",
		})
		return
	}

	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "invalid request body",
		})
		return
	}
	if req.Language == "" {
		req.Language = "python"
	}

	result, err := h.runner.Execute(r.Context(), id.UserID, req.Code, req.Language, req.TimeoutSeconds)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ExecuteResponse{
		Output:               result.Output,
		Success:              result.Success(),
		ExecutionTimeSeconds: result.Seconds(),
		Fingerprint:          result.Fingerprint,
	})
}

// HandleLanguages lists the supported language profiles.
//
// HTTP: GET /api/languages
func (h *ExecuteHandler) HandleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"languages": h.runner.Languages(),
	})
}

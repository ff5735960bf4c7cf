// Package repository declares the storage interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite);
// services only ever see these interfaces, which keeps them testable with
// in-memory fakes.
package repository

import (
	"context"

	"github.com/sufal6785/agentbox/internal/model"
)

// UserRepository stores user accounts.
type UserRepository interface {
	// Create inserts a new user. Returns apperror.Conflict if the username
	// is already taken.
	Create(ctx context.Context, user *model.User) error
	// GetByUsername returns apperror.NotFound when no such user exists.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	// UpsertGitHub inserts or refreshes a user keyed by their GitHub ID,
	// keeping the internal ID stable across logins.
	UpsertGitHub(ctx context.Context, user *model.User) error
	Count(ctx context.Context) (int, error)
}

// ExecutionLogRepository stores the per-execution audit trail.
type ExecutionLogRepository interface {
	Insert(ctx context.Context, rec *model.ExecutionRecord) error
	Stats(ctx context.Context) (*model.ExecutionStats, error)
}

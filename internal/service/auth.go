package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sufal6785/agentbox/internal/apperror"
	"github.com/sufal6785/agentbox/internal/auth"
	"github.com/sufal6785/agentbox/internal/model"
	"github.com/sufal6785/agentbox/internal/repository"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6
)

// AuthService implements registration and login on top of the user
// repository. It issues the JWTs the execution endpoints require; the
// execution core itself never touches identity beyond carrying the actor ID
// into the audit log.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all dependencies injected.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates a new password-based account.
func (s *AuthService) Register(ctx context.Context, username, password, role string) (*model.User, error) {
	username = strings.TrimSpace(username)

	if len(username) < minUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be at least %d characters", minUsernameLength))
	}
	if len(password) < minPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if role == "" {
		role = model.RoleUser
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, apperror.ValidationFailed("role", "invalid role")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password is not usable")
	}

	user := &model.User{Username: username, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("username", username), slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("username", username), slog.String("role", role))
	return user, nil
}

// Login verifies the credentials and returns the user plus a signed access
// token. Unknown usernames and wrong passwords produce the same
// Unauthorized error so the response doesn't reveal which half failed.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, "", apperror.ValidationFailed("credentials", "username and password required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("login attempt for unknown user", slog.String("username", username))
			return nil, "", apperror.Unauthorized("invalid credentials")
		}
		return nil, "", fmt.Errorf("looking up user: %w", err)
	}

	if user.PasswordHash == "" {
		// OAuth-only account; it has no password to check.
		return nil, "", apperror.Unauthorized("invalid credentials")
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Warn("failed login attempt", slog.String("username", username))
		return nil, "", apperror.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.Generate(auth.Identity{UserID: user.ID, Role: user.Role})
	if err != nil {
		return nil, "", fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("user logged in", slog.String("username", username))
	return user, token, nil
}

// LoginGitHub completes a GitHub OAuth login: upserts the account and
// issues the same JWT a password login would.
func (s *AuthService) LoginGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*model.User, string, error) {
	user := &model.User{
		Username: ghUser.Login,
		Role:     model.RoleUser,
		GitHubID: ghUser.ID,
	}

	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		s.logger.Error("failed to upsert github user",
			slog.Int64("githubID", ghUser.ID), slog.String("error", err.Error()))
		return nil, "", fmt.Errorf("upserting github user: %w", err)
	}

	token, err := s.tokens.Generate(auth.Identity{UserID: user.ID, Role: user.Role})
	if err != nil {
		return nil, "", fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("github user logged in", slog.String("username", user.Username))
	return user, token, nil
}

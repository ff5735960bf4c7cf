// Package model defines the data structures shared across layers.
package model

import "time"

// User roles. Admins can read the execution statistics endpoint.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account.
//
// Two identity paths feed this struct: username/password registration
// (PasswordHash set, GitHubID zero) and GitHub OAuth login (GitHubID set,
// PasswordHash empty). Both get the same internal xid and the same JWT
// treatment afterwards.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	PasswordHash string    `json:"-"         db:"password_hash"` // never serialized
	Role         string    `json:"role"      db:"role"`
	GitHubID     int64     `json:"-"         db:"github_id"` // 0 when not a GitHub account
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// IsAdmin reports whether the user may access admin-only endpoints.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

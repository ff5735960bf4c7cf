package model

import "time"

// ExecutionRecord is one row of the execution audit log, written after
// every code execution for monitoring and the stats endpoint.
//
// Fingerprint is the truncated source digest — enough to correlate repeated
// submissions of the same code in logs, deliberately not enough to recover
// or uniquely identify the code.
type ExecutionRecord struct {
	ID            int64     `json:"id"            db:"id"`
	ActorID       string    `json:"actorId"       db:"actor_id"`
	Language      string    `json:"language"      db:"language"`
	Fingerprint   string    `json:"fingerprint"   db:"fingerprint"`
	ExecutionTime float64   `json:"executionTime" db:"execution_time"` // seconds
	Success       bool      `json:"success"       db:"success"`
	CreatedAt     time.Time `json:"createdAt"     db:"created_at"`
}

// ExecutionStats is the aggregate view served to admins.
type ExecutionStats struct {
	TotalExecutions      int            `json:"totalExecutions"`
	SuccessfulExecutions int            `json:"successfulExecutions"`
	SuccessRate          float64        `json:"successRate"` // percentage, 2 decimals
	LanguageUsage        map[string]int `json:"languageUsage"`
}

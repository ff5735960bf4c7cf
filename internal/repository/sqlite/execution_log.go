package sqlite

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sufal6785/agentbox/internal/model"
	"github.com/sufal6785/agentbox/internal/repository"
)

// compile-time check that *DB implements repository.ExecutionLogRepository
var _ repository.ExecutionLogRepository = (*DB)(nil)

// Insert appends one execution record to the audit log.
func (db *DB) Insert(ctx context.Context, rec *model.ExecutionRecord) error {
	rec.CreatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO execution_logs (actor_id, language, fingerprint, execution_time, success, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ActorID, rec.Language, rec.Fingerprint, rec.ExecutionTime, rec.Success, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting execution log: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}

	return nil
}

// Stats aggregates the execution log for the admin stats endpoint.
func (db *DB) Stats(ctx context.Context) (*model.ExecutionStats, error) {
	stats := &model.ExecutionStats{LanguageUsage: make(map[string]int)}

	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(success), 0) FROM execution_logs`,
	).Scan(&stats.TotalExecutions, &stats.SuccessfulExecutions)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aggregating execution logs: %w", err)
	}

	if stats.TotalExecutions > 0 {
		rate := float64(stats.SuccessfulExecutions) / float64(stats.TotalExecutions) * 100
		stats.SuccessRate = math.Round(rate*100) / 100
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT language, COUNT(*) FROM execution_logs GROUP BY language ORDER BY COUNT(*) DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying language usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lang string
		var count int
		if err := rows.Scan(&lang, &count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning language usage: %w", err)
		}
		stats.LanguageUsage[lang] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating language usage: %w", err)
	}

	return stats, nil
}

package history

import (
	"database/sql"
	"fmt"
)

// Attempt represents a row in the heal_attempts table.
type Attempt struct {
	ID          int
	AttemptID   string
	PatternID   string
	Tool        string
	Severity    string
	Healed      bool
	Rollback    bool
	Command     string
	FilesFixed  int
	CommitHash  string
	ErrorDetail string
	DurationMs  int
	Timestamp   string
}

// LogAttempt inserts a healing attempt record.
func (d *DB) LogAttempt(a Attempt) error {
	_, err := d.conn.Exec(
		`INSERT INTO heal_attempts (attempt_id, pattern_id, tool, severity, healed, rollback, command, files_fixed, commit_hash, error_detail, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.AttemptID, a.PatternID, a.Tool, a.Severity, a.Healed, a.Rollback, a.Command, a.FilesFixed, a.CommitHash, a.ErrorDetail, a.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("log attempt: %w", err)
	}
	return nil
}

// GetAttempt returns the attempt with the given attempt id, or nil if none.
func (d *DB) GetAttempt(attemptID string) (*Attempt, error) {
	row := d.conn.QueryRow(
		`SELECT id, attempt_id, pattern_id, tool, severity, healed, rollback, command, files_fixed, commit_hash, error_detail, duration_ms, timestamp
		 FROM heal_attempts WHERE attempt_id = ?`,
		attemptID,
	)
	a, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

// ListAttempts returns the most recent attempts, newest first.
// A limit of zero or less returns everything.
func (d *DB) ListAttempts(limit int) ([]Attempt, error) {
	query := `SELECT id, attempt_id, pattern_id, tool, severity, healed, rollback, command, files_fixed, commit_hash, error_detail, duration_ms, timestamp
	 FROM heal_attempts ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// ToolStats summarises attempts per tool.
type ToolStats struct {
	Tool     string
	Attempts int
	Healed   int
}

// StatsByTool returns per-tool attempt counts, ordered by attempt count descending.
func (d *DB) StatsByTool() ([]ToolStats, error) {
	rows, err := d.conn.Query(
		`SELECT tool, COUNT(*), SUM(CASE WHEN healed THEN 1 ELSE 0 END)
		 FROM heal_attempts WHERE tool != '' GROUP BY tool ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("stats by tool: %w", err)
	}
	defer rows.Close()

	var stats []ToolStats
	for rows.Next() {
		var s ToolStats
		if err := rows.Scan(&s.Tool, &s.Attempts, &s.Healed); err != nil {
			return nil, fmt.Errorf("scan tool stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (*Attempt, error) {
	var a Attempt
	var patternID, tool, severity, command, commitHash, errorDetail sql.NullString
	var filesFixed, durationMs sql.NullInt64
	err := row.Scan(&a.ID, &a.AttemptID, &patternID, &tool, &severity, &a.Healed, &a.Rollback, &command, &filesFixed, &commitHash, &errorDetail, &durationMs, &a.Timestamp)
	if err != nil {
		return nil, err
	}
	a.PatternID = patternID.String
	a.Tool = tool.String
	a.Severity = severity.String
	a.Command = command.String
	a.CommitHash = commitHash.String
	a.ErrorDetail = errorDetail.String
	if filesFixed.Valid {
		a.FilesFixed = int(filesFixed.Int64)
	}
	if durationMs.Valid {
		a.DurationMs = int(durationMs.Int64)
	}
	return &a, nil
}

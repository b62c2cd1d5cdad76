package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/oarkflow/json"
)

// RunRecord is the outcome of one script execution.
type RunRecord struct {
	ID         string    `json:"id"`
	ScriptID   string    `json:"script_id,omitempty"`
	ScriptName string    `json:"script_name,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	Source     string    `json:"source"`
	Output     string    `json:"output"`
	Warnings   []string  `json:"warnings,omitempty"`
	Result     string    `json:"result,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMs float64   `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordRun stores a run, assigning an identifier and timestamp when missing.
func (s *Store) RecordRun(ctx context.Context, run RunRecord) (RunRecord, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	var warnings any
	if len(run.Warnings) > 0 {
		data, err := json.Marshal(run.Warnings)
		if err != nil {
			return RunRecord{}, err
		}
		warnings = string(data)
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
			id, script_id, session_id, source, output, warnings, result, success, error, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		nullString(run.ScriptID),
		nullString(run.SessionID),
		run.Source,
		run.Output,
		warnings,
		nullString(run.Result),
		boolToInt(run.Success),
		nullString(run.Error),
		run.DurationMs,
		run.CreatedAt,
	)
	if err != nil {
		return RunRecord{}, err
	}
	return run, nil
}

// ListRuns returns the most recent runs up to limit, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT
			r.id,
			r.script_id,
			sc.name,
			r.session_id,
			r.source,
			r.output,
			r.warnings,
			r.result,
			r.success,
			r.error,
			r.duration_ms,
			r.created_at
		FROM runs r
		LEFT JOIN scripts sc ON sc.id = r.script_id
		ORDER BY r.created_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []RunRecord
	for rows.Next() {
		var (
			scriptID   sql.NullString
			scriptName sql.NullString
			sessionID  sql.NullString
			output     sql.NullString
			warnings   sql.NullString
			result     sql.NullString
			success    int
			errText    sql.NullString
		)
		rec := RunRecord{}
		if err := rows.Scan(&rec.ID, &scriptID, &scriptName, &sessionID, &rec.Source, &output, &warnings, &result, &success, &errText, &rec.DurationMs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.ScriptID = scriptID.String
		rec.ScriptName = scriptName.String
		rec.SessionID = sessionID.String
		rec.Output = output.String
		rec.Result = result.String
		rec.Error = errText.String
		rec.Success = success == 1
		if warnings.Valid && warnings.String != "" {
			if err := json.Unmarshal([]byte(warnings.String), &rec.Warnings); err != nil {
				return nil, err
			}
		}
		history = append(history, rec)
	}
	return history, rows.Err()
}

// ClearRuns removes the whole run history.
func (s *Store) ClearRuns(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM runs`)
	return err
}

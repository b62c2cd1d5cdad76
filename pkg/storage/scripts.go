package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	oerrors "github.com/oarkflow/errors"
)

// ScriptRecord is a saved script.
type ScriptRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var (
	ErrScriptNotFound = oerrors.New("script not found")
	ErrScriptName     = oerrors.New("script name is required")
)

// SaveScript persists a named script. Names are unique.
func (s *Store) SaveScript(ctx context.Context, name, description, source string) (ScriptRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ScriptRecord{}, ErrScriptName
	}
	now := time.Now().UTC()
	rec := ScriptRecord{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Source:      source,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO scripts (id, name, description, source, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Name,
		nullString(rec.Description),
		rec.Source,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return ScriptRecord{}, err
	}
	return rec, nil
}

// GetScript fetches a saved script by identifier, falling back to its name.
func (s *Store) GetScript(ctx context.Context, idOrName string) (ScriptRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, description, source, created_at, updated_at FROM scripts WHERE id = ? OR name = ? ORDER BY id = ? DESC LIMIT 1`, idOrName, idOrName, idOrName)
	rec, err := scanScript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ScriptRecord{}, ErrScriptNotFound
	}
	return rec, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScript(row rowScanner) (ScriptRecord, error) {
	rec := ScriptRecord{}
	var description sql.NullString
	if err := row.Scan(&rec.ID, &rec.Name, &description, &rec.Source, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return ScriptRecord{}, err
	}
	if description.Valid {
		rec.Description = description.String
	}
	return rec, nil
}

// ListScripts returns the saved scripts ordered by name.
func (s *Store) ListScripts(ctx context.Context) ([]ScriptRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, source, created_at, updated_at FROM scripts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scripts []ScriptRecord
	for rows.Next() {
		rec, err := scanScript(rows)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, rec)
	}
	return scripts, rows.Err()
}

// UpdateScript replaces the name, description and source of rec.ID.
func (s *Store) UpdateScript(ctx context.Context, rec ScriptRecord) (ScriptRecord, error) {
	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Name == "" {
		return ScriptRecord{}, ErrScriptName
	}
	rec.Description = strings.TrimSpace(rec.Description)
	rec.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE scripts SET name = ?, description = ?, source = ?, updated_at = ? WHERE id = ?`,
		rec.Name,
		nullString(rec.Description),
		rec.Source,
		rec.UpdatedAt,
		rec.ID,
	)
	if err != nil {
		return ScriptRecord{}, err
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ScriptRecord{}, ErrScriptNotFound
	}
	return s.GetScript(ctx, rec.ID)
}

// DeleteScript removes a saved script. Its runs stay in the history.
func (s *Store) DeleteScript(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM scripts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ErrScriptNotFound
	}
	return nil
}

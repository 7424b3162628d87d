package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

// StoredTemplate is a template as persisted, with bookkeeping columns.
type StoredTemplate struct {
	ir.Template
	ConfigHash string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SaveTemplate inserts or replaces the template with t.Name.
// created_at is preserved on replace.
func (s *Store) SaveTemplate(ctx context.Context, t ir.Template) error {
	if t.Name == "" {
		return errors.New("save template: name is required")
	}
	text, hash, err := marshalConfiguration(t.QueryConfiguration)
	if err != nil {
		return fmt.Errorf("save template %q: %w", t.Name, err)
	}
	now := s.timestamp()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates (name, configuration, config_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			configuration = excluded.configuration,
			config_hash = excluded.config_hash,
			updated_at = excluded.updated_at
	`, t.Name, text, hash, now, now)
	if err != nil {
		return fmt.Errorf("save template %q: %w", t.Name, err)
	}
	return nil
}

// LoadTemplate returns the template with the given name.
// Returns an error wrapping ErrNotFound if it does not exist.
func (s *Store) LoadTemplate(ctx context.Context, name string) (StoredTemplate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, configuration, config_hash, created_at, updated_at
		FROM templates
		WHERE name = ?
	`, name)

	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredTemplate{}, fmt.Errorf("template %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return StoredTemplate{}, fmt.Errorf("load template %q: %w", name, err)
	}
	return t, nil
}

// ListTemplates returns every template ordered by name.
func (s *Store) ListTemplates(ctx context.Context) ([]StoredTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, configuration, config_hash, created_at, updated_at
		FROM templates
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []StoredTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("list templates: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return out, nil
}

// DeleteTemplate removes the named template.
// Returns an error wrapping ErrNotFound if it does not exist.
func (s *Store) DeleteTemplate(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete template %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete template %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("template %q: %w", name, ErrNotFound)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (StoredTemplate, error) {
	var (
		t                    StoredTemplate
		text                 string
		createdAt, updatedAt string
	)
	if err := row.Scan(&t.Name, &text, &t.ConfigHash, &createdAt, &updatedAt); err != nil {
		return StoredTemplate{}, err
	}

	cfg, err := unmarshalConfiguration(text)
	if err != nil {
		return StoredTemplate{}, err
	}
	t.QueryConfiguration = cfg

	if t.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return StoredTemplate{}, err
	}
	if t.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return StoredTemplate{}, err
	}
	return t, nil
}

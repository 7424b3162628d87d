package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

// DefaultHistoryLimit is the page size used when ListRuns is given a
// non-positive limit.
const DefaultHistoryLimit = 50

// RunKind distinguishes full runs from previews.
type RunKind string

const (
	RunKindRun     RunKind = "run"
	RunKindPreview RunKind = "preview"
)

// Run is one recorded execution of a configuration.
type Run struct {
	ID            string
	Seq           int64
	Kind          RunKind
	TemplateName  string
	ConfigHash    string
	Configuration ir.QueryConfiguration
	Success       bool
	RowCount      int
	ExecutionTime float64 // seconds
	Message       string
	StartedAt     time.Time
}

// WriteRun records a run. ID and Seq are assigned by the caller; the
// config hash is computed from the configuration.
// StartedAt defaults to the store clock when zero.
func (s *Store) WriteRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		return errors.New("write run: id is required")
	}
	if r.Kind != RunKindRun && r.Kind != RunKindPreview {
		return fmt.Errorf("write run %s: invalid kind %q", r.ID, r.Kind)
	}
	text, hash, err := marshalConfiguration(r.Configuration)
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.ID, err)
	}
	started := s.timestamp()
	if !r.StartedAt.IsZero() {
		started = r.StartedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO report_runs
			(id, seq, kind, template_name, config_hash, configuration,
			 success, row_count, execution_time, message, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Seq, string(r.Kind), r.TemplateName, hash, text,
		boolToInt(r.Success), r.RowCount, r.ExecutionTime, r.Message, started)
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns run history newest first (seq DESC, id ASC), skipping
// skip rows and returning at most limit rows.
func (s *Store) ListRuns(ctx context.Context, skip, limit int) ([]Run, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.queryRuns(ctx, `
		SELECT id, seq, kind, template_name, config_hash, configuration,
		       success, row_count, execution_time, message, started_at
		FROM report_runs
		ORDER BY seq DESC, id ASC
		LIMIT ? OFFSET ?
	`, limit, skip)
}

// RunsForConfiguration returns every run whose configuration hashes to
// hash, newest first.
func (s *Store) RunsForConfiguration(ctx context.Context, hash string) ([]Run, error) {
	return s.queryRuns(ctx, `
		SELECT id, seq, kind, template_name, config_hash, configuration,
		       success, row_count, execution_time, message, started_at
		FROM report_runs
		WHERE config_hash = ?
		ORDER BY seq DESC, id ASC
	`, hash)
}

// MaxRunSeq returns the highest recorded seq, or 0 for an empty history.
// Used to resume the logical clock across process restarts.
func (s *Store) MaxRunSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM report_runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("max run seq: %w", err)
	}
	return seq, nil
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			kind    string
			text    string
			success int
			started string
		)
		if err := rows.Scan(&r.ID, &r.Seq, &kind, &r.TemplateName, &r.ConfigHash, &text,
			&success, &r.RowCount, &r.ExecutionTime, &r.Message, &started); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Kind = RunKind(kind)
		r.Success = success != 0

		if r.Configuration, err = unmarshalConfiguration(text); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		if r.StartedAt, err = parseTimestamp(started); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return out, nil
}

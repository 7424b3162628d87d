package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hiepdl65/reportbuilder/internal/catalog"
	"github.com/hiepdl65/reportbuilder/internal/config"
	"github.com/hiepdl65/reportbuilder/internal/execution"
	"github.com/hiepdl65/reportbuilder/internal/store"
)

// backend is the executor and catalog selected by executor.mode.
//
//	mock: MockExecutor, builtin demo catalog
//	http: HTTPExecutor, catalog fetched from the report service
//	sql:  SQLExecutor over executor.data, catalog introspected from it
//
// A catalog_dir replaces the mode's catalog in every mode.
type backend struct {
	cfg      *config.Config
	executor execution.Executor
	http     *execution.HTTPExecutor // http mode only
	data     *sql.DB                 // sql mode only
	logger   *slog.Logger
}

// newBackend builds the executor for cfg. Close releases it.
func newBackend(cfg *config.Config, logger *slog.Logger) (*backend, error) {
	b := &backend{cfg: cfg, logger: logger}
	ec := cfg.Executor

	switch ec.Mode {
	case config.ModeMock:
		opts := []execution.MockOption{
			execution.WithLatency(ec.Latency),
			execution.WithMockPreviewRows(ec.PreviewRows),
		}
		if ec.Seed != 0 {
			opts = append(opts, execution.WithSeed(ec.Seed))
		}
		b.executor = execution.NewMockExecutor(opts...)

	case config.ModeHTTP:
		h, err := execution.NewHTTPExecutor(ec.BaseURL,
			execution.WithToken(ec.Token),
			execution.WithTimeout(ec.Timeout),
		)
		if err != nil {
			return nil, fmt.Errorf("http executor: %w", err)
		}
		b.http = h
		b.executor = h

	case config.ModeSQL:
		// sqlite3 would create a missing file.
		if _, err := os.Stat(ec.Data); err != nil {
			return nil, fmt.Errorf("data database: %w", err)
		}
		db, err := sql.Open("sqlite3", ec.Data)
		if err != nil {
			return nil, fmt.Errorf("open data database %s: %w", ec.Data, err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("open data database %s: %w", ec.Data, err)
		}
		b.data = db
		b.executor = execution.NewSQLExecutor(db,
			execution.WithSQLPreviewRows(ec.PreviewRows),
			execution.WithSQLLogger(logger),
		)

	default:
		return nil, fmt.Errorf("unknown executor mode %q", ec.Mode)
	}

	logger.Debug("executor ready", "mode", ec.Mode)
	return b, nil
}

// Catalog loads the catalog for this backend.
func (b *backend) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	if dir := b.cfg.CatalogDir; dir != "" {
		b.logger.Debug("loading catalog", "dir", dir)
		return catalog.LoadCUE(dir)
	}

	switch {
	case b.http != nil:
		b.logger.Debug("fetching catalog", "base_url", b.cfg.Executor.BaseURL)
		return catalog.Fetch(ctx, b.http, catalog.DefaultFetchConcurrency)
	case b.data != nil:
		b.logger.Debug("introspecting catalog", "data", b.cfg.Executor.Data)
		return catalog.FromSQLite(ctx, b.data)
	default:
		return catalog.Builtin(), nil
	}
}

// Close releases the data database in sql mode.
func (b *backend) Close() error {
	if b.data != nil {
		return b.data.Close()
	}
	return nil
}

// openStore opens the template and history database and a runner clock
// that continues after the last recorded run.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, *execution.Clock, error) {
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open database %s: %w", cfg.Database, err)
	}
	last, err := st.MaxRunSeq(ctx)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return st, execution.NewClockAt(last), nil
}

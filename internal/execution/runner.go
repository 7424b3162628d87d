package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hiepdl65/reportbuilder/internal/builder"
	"github.com/hiepdl65/reportbuilder/internal/ir"
	"github.com/hiepdl65/reportbuilder/internal/store"
)

// History persists run outcomes and templates. *store.Store satisfies it.
type History interface {
	WriteRun(ctx context.Context, r store.Run) error
	SaveTemplate(ctx context.Context, t ir.Template) error
}

// RunOptions are the per-call parts of a RunRequest.
type RunOptions struct {
	// ExportFormat is passed through to the executor.
	ExportFormat string

	// SaveAsTemplate names the selection and, after a successful run,
	// persists it under TemplateName.
	SaveAsTemplate bool
	TemplateName   string
}

// Runner drives one Selection through an Executor.
//
// A Runner is not safe for concurrent use with the same Selection;
// callers serialize runs.
type Runner struct {
	exec    Executor
	history History
	clock   *Clock
	ids     IDGenerator
	logger  *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithHistory records every run and saves requested templates.
func WithHistory(h History) RunnerOption {
	return func(r *Runner) {
		r.history = h
	}
}

// WithClock sets the logical clock stamping recorded runs.
func WithClock(c *Clock) RunnerOption {
	return func(r *Runner) {
		r.clock = c
	}
}

// WithIDGenerator sets the run id generator.
func WithIDGenerator(g IDGenerator) RunnerOption {
	return func(r *Runner) {
		r.ids = g
	}
}

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner over exec.
func NewRunner(exec Executor, opts ...RunnerOption) *Runner {
	r := &Runner{
		exec:   exec,
		clock:  NewClock(),
		ids:    UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the selection's configuration in full.
func (r *Runner) Run(ctx context.Context, sel *builder.Selection, opts RunOptions) (*ir.RunResponse, error) {
	return r.execute(ctx, sel, opts, store.RunKindRun)
}

// Preview executes the selection's configuration for a row-limited subset.
func (r *Runner) Preview(ctx context.Context, sel *builder.Selection, opts RunOptions) (*ir.RunResponse, error) {
	return r.execute(ctx, sel, opts, store.RunKindPreview)
}

// execute performs one run:
//  1. Refuse with NOT_READY unless the selection has a table and a field
//  2. Snapshot the configuration and mark the selection loading
//  3. Call the executor
//  4. Write rows and columns, or the error message, back to the selection
//  5. Record the outcome and save the template when asked
//
// The selection stays editable while the executor runs. Results are
// written back regardless; an edit made meanwhile is only logged.
func (r *Runner) execute(ctx context.Context, sel *builder.Selection, opts RunOptions, kind store.RunKind) (*ir.RunResponse, error) {
	if !sel.CanGenerateReport() {
		return nil, NewNotReadyError(sel.Readiness())
	}
	if opts.SaveAsTemplate && opts.TemplateName == "" {
		return nil, errors.New("save as template: template name is required")
	}

	req := ir.RunRequest{
		QueryConfig:    sel.Configuration(),
		ExportFormat:   opts.ExportFormat,
		TemplateName:   sel.CurrentTemplate(),
		SaveAsTemplate: opts.SaveAsTemplate,
	}
	if opts.SaveAsTemplate {
		req.TemplateName = opts.TemplateName
	}
	revision := sel.Revision()
	runID := r.ids.Generate()
	logger := r.logger.With("run_id", runID, "kind", string(kind))

	sel.SetLoading(true)
	sel.SetError(nil)
	logger.Debug("run started", "tables", len(req.QueryConfig.Tables), "fields", len(req.QueryConfig.Fields))

	var (
		resp *ir.RunResponse
		err  error
	)
	if kind == store.RunKindPreview {
		resp, err = r.exec.Preview(ctx, req)
	} else {
		resp, err = r.exec.Run(ctx, req)
	}
	sel.SetLoading(false)

	if sel.Revision() != revision {
		logger.Debug("selection changed while running", "from", revision, "to", sel.Revision())
	}

	if err != nil {
		msg := err.Error()
		sel.SetError(&msg)
		logger.Info("run failed", "error", err)
		r.record(ctx, logger, store.Run{
			ID:            runID,
			Kind:          kind,
			TemplateName:  req.TemplateName,
			Configuration: req.QueryConfig,
			Message:       msg,
		})
		return nil, fmt.Errorf("%s report: %w", kind, err)
	}

	sel.SetReportData(resp.Data, resp.Columns)
	logger.Info("run finished", "rows", resp.RowCount, "execution_time", resp.ExecutionTime)
	r.record(ctx, logger, store.Run{
		ID:            runID,
		Kind:          kind,
		TemplateName:  req.TemplateName,
		Configuration: req.QueryConfig,
		Success:       true,
		RowCount:      resp.RowCount,
		ExecutionTime: resp.ExecutionTime,
		Message:       resp.Message,
	})

	if opts.SaveAsTemplate {
		tmpl := sel.SaveAsTemplate(opts.TemplateName)
		// Persist the configuration that ran, not later edits.
		tmpl.QueryConfiguration = req.QueryConfig
		if r.history != nil {
			if err := r.history.SaveTemplate(ctx, tmpl); err != nil {
				return resp, fmt.Errorf("save template %q: %w", tmpl.Name, err)
			}
			logger.Info("template saved", "name", tmpl.Name)
		}
	}
	return resp, nil
}

// record writes a history row. Failures are logged, never returned.
func (r *Runner) record(ctx context.Context, logger *slog.Logger, run store.Run) {
	if r.history == nil {
		return
	}
	run.Seq = r.clock.Next()
	if err := r.history.WriteRun(ctx, run); err != nil {
		logger.Warn("record run failed", "error", err)
	}
}

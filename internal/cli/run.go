package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hiepdl65/reportbuilder/internal/builder"
	"github.com/hiepdl65/reportbuilder/internal/catalog"
	"github.com/hiepdl65/reportbuilder/internal/execution"
	"github.com/hiepdl65/reportbuilder/internal/ir"
	"github.com/hiepdl65/reportbuilder/internal/store"
)

// RunOptions holds flags for the run and preview commands.
type RunOptions struct {
	*RootOptions
	configInput

	Tables       []string // build the selection from catalog tables
	SaveAs       string   // save the configuration as a template after success
	ExportFormat string   // passed through to the executor

	preview bool
}

// RunResult is the JSON payload of run and preview.
type RunResult struct {
	*ir.RunResponse
	Readiness  string `json:"readiness"`
	ConfigHash string `json:"config_hash"`
	Template   string `json:"template,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(rootOpts, false)
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(rootOpts, true)
}

func newRunCommand(rootOpts *RootOptions, preview bool) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts, preview: preview}

	cmd := &cobra.Command{
		Use:   "run [config.json]",
		Short: "Run a report",
		Long: `Run a report through the configured executor and print its rows.

The selection comes from a configuration file, a saved template (--template)
or catalog tables (--table, repeatable), which are added with their first
fields selected. Every run is recorded in the history database.

Examples:
  reportbuilder run report.json
  reportbuilder run --template monthly-orders --format json
  reportbuilder run --table orders --table customers --save-as orders-customers
  reportbuilder run report.json --executor http --base-url https://reports.example.com/api/v1`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, args, cmd)
		},
	}
	if preview {
		cmd.Use = "preview [config.json]"
		cmd.Short = "Preview the first rows of a report"
		cmd.Long = `Run a report for its first rows (executor.preview_rows, default 5).

Takes the same inputs as run. Previews are recorded in the history database.

Examples:
  reportbuilder preview report.json
  reportbuilder preview --table orders --preview-rows 3`
	}

	opts.addFlags(cmd)
	cmd.Flags().StringArrayVar(&opts.Tables, "table", nil, "add a catalog table (repeatable)")
	cmd.Flags().StringVar(&opts.SaveAs, "save-as", "", "save as a template after a successful run")
	cmd.Flags().StringVar(&opts.ExportFormat, "export-format", "", "export format requested from the executor")

	return cmd
}

func runReport(opts *RunOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.Logger

	// Cancel an in-flight run on Ctrl-C
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := newBackend(opts.Config, logger)
	if err != nil {
		return formatter.Fail("failed to create executor", err)
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			logger.Error("error closing data database", "error", closeErr)
		}
	}()

	st, clock, err := openStore(ctx, opts.Config)
	if err != nil {
		return formatter.Fail("failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	sel, err := opts.selection(ctx, b, st, args, cmd)
	if err != nil {
		return formatter.Fail("failed to build selection", err)
	}

	runnerOpts := []execution.RunnerOption{
		execution.WithHistory(st),
		execution.WithClock(clock),
		execution.WithLogger(logger),
	}
	if opts.IDGenerator != nil {
		runnerOpts = append(runnerOpts, execution.WithIDGenerator(opts.IDGenerator))
	}
	runner := execution.NewRunner(b.executor, runnerOpts...)

	run := runner.Run
	if opts.preview {
		run = runner.Preview
	}
	resp, err := run(ctx, sel, execution.RunOptions{
		ExportFormat:   opts.ExportFormat,
		SaveAsTemplate: opts.SaveAs != "",
		TemplateName:   opts.SaveAs,
	})
	if err != nil {
		return formatter.Fail("report failed", err)
	}

	hash, err := sel.ConfigurationHash()
	if err != nil {
		return formatter.Fail("failed to hash configuration", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(RunResult{
			RunResponse: resp,
			Readiness:   sel.Readiness().String(),
			ConfigHash:  hash,
			Template:    sel.CurrentTemplate(),
		})
	}

	w := cmd.OutOrStdout()
	renderReport(w, sel.ReportColumns(), sel.ReportData())
	if resp.Message != "" {
		fmt.Fprintln(w, resp.Message)
	}
	if resp.ExportFileURL != "" {
		fmt.Fprintf(w, "Export: %s\n", resp.ExportFileURL)
	}
	if opts.SaveAs != "" {
		fmt.Fprintf(w, "✓ Saved as template %q\n", opts.SaveAs)
	}
	formatter.VerboseLog("config %s, %.3fs", hash, resp.ExecutionTime)
	return nil
}

// selection builds the selection to run from exactly one input: --table,
// --template or a configuration file.
func (opts *RunOptions) selection(ctx context.Context, b *backend, st *store.Store, args []string, cmd *cobra.Command) (*builder.Selection, error) {
	selOpts := []builder.Option{
		builder.WithDatasourceID(opts.Config.Datasource),
		builder.WithLogger(opts.Logger),
	}

	if len(opts.Tables) > 0 {
		if opts.Template != "" || len(args) > 0 {
			return nil, &inputError{fmt.Errorf("--table cannot be combined with a configuration file or --template")}
		}
		cat, err := b.Catalog(ctx)
		if err != nil {
			return nil, err
		}
		sel := builder.New(cat, selOpts...)
		for _, name := range opts.Tables {
			t, ok := cat.TableByName(name)
			if !ok {
				return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownTable, name)
			}
			sel.AddTable(t)
		}
		return sel, nil
	}

	// Restored configurations are never seeded, so no catalog is needed.
	sel := builder.New(nil, selOpts...)
	if opts.Template != "" && len(args) == 0 {
		stored, err := st.LoadTemplate(ctx, opts.Template)
		if err != nil {
			return nil, err
		}
		sel.LoadTemplate(stored.Template)
		return sel, nil
	}

	cfg, _, err := opts.load(ctx, opts.RootOptions, args, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	sel.Restore(cfg)
	return sel, nil
}

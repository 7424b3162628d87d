package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hiepdl65/reportbuilder/internal/execution"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	configInput

	Output  string // write SQL to this file instead of stdout
	MaxRows int    // LIMIT cap, 0 for the configuration's own limit
}

// CompileResult is the JSON payload of compile.
type CompileResult struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [config.json]",
		Short: "Render a query configuration as SQL",
		Long: `Check a query configuration and render the SQL the sql executor would
run, with its positional parameters.

Examples:
  reportbuilder compile report.json
  reportbuilder compile --template monthly-orders -o monthly.sql
  reportbuilder compile report.json --max-rows 5 --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write SQL to file")
	cmd.Flags().IntVar(&opts.MaxRows, "max-rows", 0, "cap the LIMIT (0 keeps the configuration's limit)")

	return cmd
}

func runCompile(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, _, err := opts.load(cmd.Context(), opts.RootOptions, args, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail("failed to load configuration", err)
	}

	query, params, err := execution.Compile(cfg, opts.MaxRows)
	if execution.IsNotReady(err) {
		return formatter.Fail("compilation failed", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidConfig, err.Error(), nil)
		return WrapExitError(ExitFailure, ErrCodeInvalidConfig+": compilation failed", err)
	}
	if params == nil {
		params = []any{}
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(query+"\n"), 0644); err != nil {
			return formatter.Fail("failed to write output", &inputError{err})
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
	}

	if formatter.Format == "json" {
		return formatter.Success(CompileResult{SQL: query, Params: params})
	}

	w := cmd.OutOrStdout()
	if opts.Output == "" {
		fmt.Fprintln(w, query)
	} else {
		fmt.Fprintf(w, "✓ SQL written to %s\n", opts.Output)
	}
	for i, p := range params {
		fmt.Fprintf(w, "-- $%d = %v\n", i+1, p)
	}
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hiepdl65/reportbuilder/internal/queryir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool            `json:"valid"`
	Issues []queryir.Issue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var in configInput

	cmd := &cobra.Command{
		Use:   "validate [config.json]",
		Short: "Check a query configuration",
		Long: `Check a query configuration without running it.

Reports errors (unknown aliases, bad operands, unresolvable sort keys) and
warnings (unjoined tables, no visible fields). Exits 1 when there are
errors; warnings alone pass.

Examples:
  reportbuilder validate report.json
  reportbuilder validate --template monthly-orders
  cat report.json | reportbuilder validate -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, &in, args, cmd)
		},
	}
	in.addFlags(cmd)

	return cmd
}

func runValidate(opts *RootOptions, in *configInput, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, _, err := in.load(cmd.Context(), opts, args, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail("failed to load configuration", err)
	}

	report := queryir.Check(cfg)
	result := ValidationResult{Valid: report.OK(), Issues: report.Issues}
	formatter.VerboseLog("%d error(s), %d warning(s)", len(report.Errors()), len(report.Warnings()))

	if formatter.Format == "json" {
		if result.Valid {
			if err := formatter.Success(result); err != nil {
				return err
			}
			return nil
		}
		if err := formatter.Error(ErrCodeInvalidConfig, "configuration is invalid", result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(report.Errors())))
	}

	w := cmd.OutOrStdout()
	if len(report.Issues) > 0 {
		rows := make([][]string, len(report.Issues))
		for i, issue := range report.Issues {
			rows[i] = []string{string(issue.Severity), issue.Path, issue.Message}
		}
		renderTable(w, []string{"Severity", "Path", "Message"}, rows)
	}
	if !result.Valid {
		fmt.Fprintf(w, "✗ Configuration invalid: %d error(s), %d warning(s)\n", len(report.Errors()), len(report.Warnings()))
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(report.Errors())))
	}
	fmt.Fprintf(w, "✓ Configuration valid (%d warning(s))\n", len(report.Warnings()))
	return nil
}

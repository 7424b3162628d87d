package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hiepdl65/reportbuilder/internal/builder"
	"github.com/hiepdl65/reportbuilder/internal/config"
	"github.com/hiepdl65/reportbuilder/internal/execution"
)

// RootOptions holds global state shared by all commands. Config and
// Logger are filled in before any command runs.
type RootOptions struct {
	ConfigFile string

	Config *config.Config
	Logger *slog.Logger

	// IDGenerator overrides run ids (for testing).
	// If nil, the runner uses UUIDv7Generator.
	IDGenerator execution.IDGenerator
}

// NewRootCommand creates the root command for the reportbuilder CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "reportbuilder",
		Short: "Build, validate and run report query configurations",
		Long: `reportbuilder assembles report query configurations from a table catalog,
checks them, and runs them through a mock, HTTP or SQL executor.

Settings come from defaults, reportbuilder.yaml, REPORTBUILDER_* environment
variables and flags, later sources winning.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.loadConfig(cmd)
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default ./reportbuilder.yaml)")
	pf.BoolP("verbose", "v", false, "verbose output")
	pf.String("format", config.DefaultFormat, "output format (json|text)")
	pf.String("datasource", builder.DefaultDatasourceID, "datasource id stamped on configurations")
	pf.String("catalog-dir", "", "CUE catalog directory")
	pf.String("database", config.DefaultDatabase, "SQLite file for templates and run history")
	pf.String("executor", config.DefaultMode, "executor mode (mock|http|sql)")
	pf.String("base-url", execution.DefaultBaseURL, "report service base URL (http mode)")
	pf.String("token", "", "report service bearer token (http mode)")
	pf.Duration("timeout", execution.DefaultTimeout, "report service timeout (http mode)")
	pf.String("data", "", "SQLite file to query (sql mode)")
	pf.Int("preview-rows", execution.DefaultPreviewRows, "rows returned by preview")
	pf.Uint64("seed", 0, "mock value seed, 0 for random (mock mode)")
	pf.Duration("latency", 0, "simulated latency (mock mode)")

	// Add subcommands
	cmd.AddCommand(NewTablesCommand(opts))
	cmd.AddCommand(NewFieldsCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewPreviewCommand(opts))
	cmd.AddCommand(NewTemplateCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// loadConfig resolves the configuration from the invoked command's flags and
// installs the logger.
func (o *RootOptions) loadConfig(cmd *cobra.Command) error {
	loaded, err := config.Load(o.ConfigFile, cmd.Flags())
	if err != nil {
		formatter := &OutputFormatter{Format: config.FormatText, Writer: cmd.ErrOrStderr()}
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	o.Config = loaded.Config
	o.Logger = newLogger(cmd.ErrOrStderr(), loaded.Verbose)
	if loaded.File != "" {
		o.Logger.Debug("config loaded", "file", loaded.File)
	}
	return nil
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Config.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Config.Verbose,
	}
}

// newLogger logs to w at Info, or Debug when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

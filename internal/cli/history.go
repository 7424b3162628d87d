package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hiepdl65/reportbuilder/internal/config"
	"github.com/hiepdl65/reportbuilder/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Skip       int
	Limit      int
	ConfigHash string // only runs of this configuration
	Remote     bool   // ask the report service instead of the local database
}

// HistoryEntry is one run in command output.
type HistoryEntry struct {
	ID            string    `json:"id"`
	Seq           int64     `json:"seq,omitempty"`
	Kind          string    `json:"kind,omitempty"`
	TemplateName  string    `json:"template_name,omitempty"`
	ConfigHash    string    `json:"config_hash,omitempty"`
	Success       bool      `json:"success"`
	RowCount      int       `json:"row_count"`
	ExecutionTime float64   `json:"execution_time"`
	Message       string    `json:"message,omitempty"`
	StartedAt     time.Time `json:"started_at,omitzero"`
	CreatedAt     string    `json:"created_at,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs",
		Long: `List recorded runs and previews, newest first.

By default the local history database is read. With --remote (http mode
only) the report service's history is listed instead.

Examples:
  reportbuilder history
  reportbuilder history --limit 10 --skip 10
  reportbuilder history --config-hash 3f2a...
  reportbuilder history --remote --executor http`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "skip the newest n runs")
	cmd.Flags().IntVar(&opts.Limit, "limit", store.DefaultHistoryLimit, "maximum runs to list")
	cmd.Flags().StringVar(&opts.ConfigHash, "config-hash", "", "only runs of this configuration")
	cmd.Flags().BoolVar(&opts.Remote, "remote", false, "list the report service's history (http mode)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var (
		entries []HistoryEntry
		err     error
	)
	if opts.Remote {
		entries, err = opts.remoteHistory(cmd)
	} else {
		entries, err = opts.localHistory(cmd)
	}
	if err != nil {
		return formatter.Fail("failed to list history", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	rows := make([][]string, len(entries))
	for i, e := range entries {
		status := "ok"
		if !e.Success {
			status = "failed"
		}
		when := e.CreatedAt
		if !e.StartedAt.IsZero() {
			when = e.StartedAt.Format(time.DateTime)
		}
		rows[i] = []string{
			e.ID,
			e.Kind,
			e.TemplateName,
			status,
			fmt.Sprint(e.RowCount),
			fmt.Sprintf("%.3fs", e.ExecutionTime),
			when,
			e.Message,
		}
	}
	renderTable(w, []string{"ID", "Kind", "Template", "Status", "Rows", "Time", "Started", "Message"}, rows)
	return nil
}

func (opts *HistoryOptions) localHistory(cmd *cobra.Command) ([]HistoryEntry, error) {
	st, err := store.Open(opts.Config.Database)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	var runs []store.Run
	if opts.ConfigHash != "" {
		runs, err = st.RunsForConfiguration(cmd.Context(), opts.ConfigHash)
	} else {
		runs, err = st.ListRuns(cmd.Context(), opts.Skip, opts.Limit)
	}
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, len(runs))
	for i, r := range runs {
		entries[i] = HistoryEntry{
			ID:            r.ID,
			Seq:           r.Seq,
			Kind:          string(r.Kind),
			TemplateName:  r.TemplateName,
			ConfigHash:    r.ConfigHash,
			Success:       r.Success,
			RowCount:      r.RowCount,
			ExecutionTime: r.ExecutionTime,
			Message:       r.Message,
			StartedAt:     r.StartedAt,
		}
	}
	return entries, nil
}

func (opts *HistoryOptions) remoteHistory(cmd *cobra.Command) ([]HistoryEntry, error) {
	if opts.Config.Executor.Mode != config.ModeHTTP {
		return nil, &inputError{fmt.Errorf("--remote needs executor mode %q, not %q", config.ModeHTTP, opts.Config.Executor.Mode)}
	}
	if opts.ConfigHash != "" {
		return nil, &inputError{fmt.Errorf("--config-hash applies to the local history only")}
	}
	b, err := newBackend(opts.Config, opts.Logger)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	remote, err := b.http.History(cmd.Context(), opts.Skip, opts.Limit)
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, len(remote))
	for i, r := range remote {
		entries[i] = HistoryEntry{
			ID:            r.ID,
			TemplateName:  r.TemplateName,
			Success:       r.Success,
			RowCount:      r.RowCount,
			ExecutionTime: r.ExecutionTime,
			Message:       r.Message,
			CreatedAt:     r.CreatedAt,
		}
	}
	return entries, nil
}

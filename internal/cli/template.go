package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hiepdl65/reportbuilder/internal/builder"
	"github.com/hiepdl65/reportbuilder/internal/ir"
	"github.com/hiepdl65/reportbuilder/internal/store"
)

// TemplateInfo is one stored template in command output.
type TemplateInfo struct {
	Name               string                 `json:"name"`
	ConfigHash         string                 `json:"config_hash"`
	Tables             int                    `json:"tables"`
	Fields             int                    `json:"fields"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
	QueryConfiguration *ir.QueryConfiguration `json:"query_configuration,omitempty"`
}

func templateInfo(t store.StoredTemplate, withConfig bool) TemplateInfo {
	info := TemplateInfo{
		Name:       t.Name,
		ConfigHash: t.ConfigHash,
		Tables:     len(t.QueryConfiguration.Tables),
		Fields:     len(t.QueryConfiguration.Fields),
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
	if withConfig {
		cfg := t.QueryConfiguration
		info.QueryConfiguration = &cfg
	}
	return info
}

// NewTemplateCommand creates the template command group.
func NewTemplateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage saved templates",
		Long: `Save, list, show and delete named query configurations.

Templates live in the database given by --database. run and preview load
them with --template and save them with --save-as.`,
	}

	cmd.AddCommand(newTemplateSaveCommand(rootOpts))
	cmd.AddCommand(newTemplateListCommand(rootOpts))
	cmd.AddCommand(newTemplateShowCommand(rootOpts))
	cmd.AddCommand(newTemplateDeleteCommand(rootOpts))

	return cmd
}

func newTemplateSaveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save <name> <config.json>",
		Short: "Save a configuration file as a template",
		Long: `Save a configuration file as a named template, replacing any template of
that name. Entries that reference unselected tables and duplicates are
dropped before saving.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateSave(rootOpts, args[0], args[1], cmd)
		},
	}
}

func newTemplateListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateList(rootOpts, cmd)
		},
	}
}

func newTemplateShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a template's configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateShow(rootOpts, args[0], cmd)
		},
	}
}

func newTemplateDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateDelete(rootOpts, args[0], cmd)
		},
	}
}

func runTemplateSave(opts *RootOptions, name, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	cfg, err := readConfiguration(path, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail("failed to load configuration", err)
	}

	sel := builder.New(nil,
		builder.WithDatasourceID(opts.Config.Datasource),
		builder.WithLogger(opts.Logger),
	)
	sel.Restore(cfg)
	tmpl := sel.SaveAsTemplate(name)

	st, err := store.Open(opts.Config.Database)
	if err != nil {
		return formatter.Fail("failed to open database", err)
	}
	defer st.Close()

	if err := st.SaveTemplate(ctx, tmpl); err != nil {
		return formatter.Fail("failed to save template", err)
	}
	stored, err := st.LoadTemplate(ctx, name)
	if err != nil {
		return formatter.Fail("failed to save template", err)
	}
	opts.Logger.Debug("template saved", "name", name, "config_hash", stored.ConfigHash)

	if formatter.Format == "json" {
		return formatter.Success(templateInfo(stored, false))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved template %q (%d tables, %d fields)\n",
		name, len(tmpl.QueryConfiguration.Tables), len(tmpl.QueryConfiguration.Fields))
	return nil
}

func runTemplateList(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := store.Open(opts.Config.Database)
	if err != nil {
		return formatter.Fail("failed to open database", err)
	}
	defer st.Close()

	templates, err := st.ListTemplates(cmd.Context())
	if err != nil {
		return formatter.Fail("failed to list templates", err)
	}
	infos := make([]TemplateInfo, len(templates))
	for i, t := range templates {
		infos[i] = templateInfo(t, false)
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}

	w := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(w, "No templates saved.")
		return nil
	}
	rows := make([][]string, len(infos))
	for i, info := range infos {
		rows[i] = []string{
			info.Name,
			fmt.Sprint(info.Tables),
			fmt.Sprint(info.Fields),
			shortHash(info.ConfigHash),
			info.UpdatedAt.Format(time.DateTime),
		}
	}
	renderTable(w, []string{"Name", "Tables", "Fields", "Config", "Updated"}, rows)
	return nil
}

func runTemplateShow(opts *RootOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := store.Open(opts.Config.Database)
	if err != nil {
		return formatter.Fail("failed to open database", err)
	}
	defer st.Close()

	stored, err := st.LoadTemplate(cmd.Context(), name)
	if err != nil {
		return formatter.Fail("failed to load template", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(templateInfo(stored, true))
	}

	// Text output is the configuration alone, so it can be fed back to
	// validate, compile or run.
	data, err := json.MarshalIndent(stored.QueryConfiguration, "", "  ")
	if err != nil {
		return formatter.Fail("failed to encode template", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runTemplateDelete(opts *RootOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := store.Open(opts.Config.Database)
	if err != nil {
		return formatter.Fail("failed to open database", err)
	}
	defer st.Close()

	if err := st.DeleteTemplate(cmd.Context(), name); err != nil {
		return formatter.Fail("failed to delete template", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"deleted": name})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted template %q\n", name)
	return nil
}

// shortHash trims a hex configuration hash for table output.
func shortHash(h string) string {
	const n = 16
	if len(h) <= n {
		return h
	}
	return h[:n]
}

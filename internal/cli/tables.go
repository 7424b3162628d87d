package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hiepdl65/reportbuilder/internal/catalog"
	"github.com/hiepdl65/reportbuilder/internal/ir"
)

// TableInfo is one catalog table in command output.
type TableInfo struct {
	ir.Table
	Fields []string `json:"fields"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List catalog tables",
		Long: `List the tables of the configured catalog with their fields.

The catalog is the CUE directory given by --catalog-dir, or else the
executor's own: builtin demo tables (mock), the report service (http), or
the tables of the data database (sql).

Examples:
  reportbuilder tables
  reportbuilder tables --executor sql --data ./shop.db
  reportbuilder tables --catalog-dir ./catalog --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(rootOpts, cmd)
		},
	}
}

// NewFieldsCommand creates the fields command.
func NewFieldsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fields <table>",
		Short: "List the fields of a catalog table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFields(rootOpts, args[0], cmd)
		},
	}
}

func runTables(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cat, err := loadCatalog(opts, cmd)
	if err != nil {
		return formatter.Fail("failed to load catalog", err)
	}

	tables := cat.Tables()
	infos := make([]TableInfo, len(tables))
	for i, t := range tables {
		infos[i] = TableInfo{Table: t, Fields: cat.Fields(t.Name)}
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}

	w := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(w, "No tables found.")
		return nil
	}
	rows := make([][]string, len(infos))
	for i, info := range infos {
		rows[i] = []string{info.ID, info.Name, info.Alias, info.Schema, strings.Join(info.Fields, ", ")}
	}
	renderTable(w, []string{"ID", "Name", "Alias", "Schema", "Fields"}, rows)
	return nil
}

func runFields(opts *RootOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cat, err := loadCatalog(opts, cmd)
	if err != nil {
		return formatter.Fail("failed to load catalog", err)
	}
	t, ok := cat.TableByName(name)
	if !ok {
		return formatter.Fail("failed to list fields", fmt.Errorf("%w: %s", catalog.ErrUnknownTable, name))
	}
	fields := cat.Fields(t.Name)

	if formatter.Format == "json" {
		return formatter.Success(TableInfo{Table: t, Fields: fields})
	}

	w := cmd.OutOrStdout()
	rows := make([][]string, len(fields))
	for i, f := range fields {
		rows[i] = []string{f, t.Alias + "." + f}
	}
	renderTable(w, []string{"Field", "Reference"}, rows)
	return nil
}

// loadCatalog builds the backend only to read its catalog.
func loadCatalog(opts *RootOptions, cmd *cobra.Command) (*catalog.Catalog, error) {
	b, err := newBackend(opts.Config, opts.Logger)
	if err != nil {
		return nil, err
	}
	defer b.Close()
	return b.Catalog(cmd.Context())
}

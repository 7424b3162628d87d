package builder

import (
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

const (
	// DefaultDatasourceID is the datasource a new selection targets.
	DefaultDatasourceID = "default"

	// DefaultLimit is the row limit stamped on every configuration.
	DefaultLimit = 1000

	// SeedFieldCount is how many catalog columns AddTable selects.
	SeedFieldCount = 3
)

// FieldLister supplies the column names of a table by table name.
// *catalog.Catalog satisfies it.
type FieldLister interface {
	Fields(table string) []string
}

// Selection is the mutable report-building state of one session.
type Selection struct {
	catalog FieldLister
	logger  *slog.Logger

	tables  []ir.Table
	fields  []ir.Field
	filters []ir.Filter
	sorts   []ir.Sort
	joins   []ir.Join

	datasourceID    string
	loading         bool
	err             *string
	reportData      []ir.Row
	reportColumns   []string
	currentTemplate string

	revision uint64
}

// Option configures a Selection.
type Option func(*Selection)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Selection) {
		s.logger = logger
	}
}

// WithDatasourceID overrides DefaultDatasourceID.
func WithDatasourceID(id string) Option {
	return func(s *Selection) {
		s.datasourceID = id
	}
}

// New creates an empty selection. A nil catalog disables field seeding.
func New(catalog FieldLister, opts ...Option) *Selection {
	s := &Selection{
		catalog:      catalog,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		datasourceID: DefaultDatasourceID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Revision increases on every mutation of the selection's collections.
func (s *Selection) Revision() uint64 {
	return s.revision
}

func (s *Selection) touch() {
	s.revision++
}

// AddTable selects a table. A table whose ID is already selected is
// ignored, as is one whose alias is taken by another table. Otherwise the
// first SeedFieldCount catalog columns of the table are added as visible
// fields aliased "{alias}_{column}".
func (s *Selection) AddTable(t ir.Table) {
	if s.tableIndex(t.ID) >= 0 {
		return
	}
	if s.hasAlias(t.Alias) {
		s.logger.Debug("table ignored: alias in use", "id", t.ID, "alias", t.Alias)
		return
	}
	s.tables = append(s.tables, t)
	s.touch()

	if s.catalog == nil {
		return
	}
	cols := s.catalog.Fields(t.Name)
	if len(cols) > SeedFieldCount {
		cols = cols[:SeedFieldCount]
	}
	for _, col := range cols {
		s.AddField(ir.Field{
			TableAlias: t.Alias,
			Column:     col,
			Alias:      t.Alias + "_" + col,
			Visible:    true,
		})
	}
	s.logger.Debug("table added", "id", t.ID, "alias", t.Alias, "seeded", len(cols))
}

// RemoveTable deselects a table and cascades: fields, filters and joins on
// its alias are dropped, as are sorts whose field key starts with the alias.
func (s *Selection) RemoveTable(id string) {
	idx := s.tableIndex(id)
	if idx < 0 {
		return
	}
	alias := s.tables[idx].Alias
	s.tables = slices.Delete(s.tables, idx, idx+1)

	s.fields = slices.DeleteFunc(s.fields, func(f ir.Field) bool {
		return f.TableAlias == alias
	})
	s.filters = slices.DeleteFunc(s.filters, func(f ir.Filter) bool {
		return f.TableAlias == alias
	})
	s.sorts = slices.DeleteFunc(s.sorts, func(o ir.Sort) bool {
		return strings.HasPrefix(o.Field, alias)
	})
	s.joins = slices.DeleteFunc(s.joins, func(j ir.Join) bool {
		return j.LeftTable == alias || j.RightTable == alias
	})
	s.touch()
	s.logger.Debug("table removed", "id", id, "alias", alias)
}

// AddField selects a column. A field already selected for the same table
// alias and column is ignored, as is a field on an unselected alias.
func (s *Selection) AddField(f ir.Field) {
	if !s.hasAlias(f.TableAlias) {
		s.logger.Debug("field ignored: table not selected", "alias", f.TableAlias, "column", f.Column)
		return
	}
	if s.fieldIndex(f.TableAlias, f.Column) >= 0 {
		return
	}
	s.fields = append(s.fields, f)
	s.touch()
}

// RemoveField deselects the first field matching alias and column.
func (s *Selection) RemoveField(tableAlias, column string) {
	idx := s.fieldIndex(tableAlias, column)
	if idx < 0 {
		return
	}
	s.fields = slices.Delete(s.fields, idx, idx+1)
	s.touch()
}

// AddFilter appends a filter. Filters are never deduplicated. A filter on
// an unselected alias is ignored.
func (s *Selection) AddFilter(f ir.Filter) {
	if !s.hasAlias(f.TableAlias) {
		s.logger.Debug("filter ignored: table not selected", "alias", f.TableAlias, "column", f.Column)
		return
	}
	f.Value = ir.Clone(f.Value)
	s.filters = append(s.filters, f)
	s.touch()
}

// RemoveFilter removes the filter at index i. Out-of-range indexes are
// ignored.
func (s *Selection) RemoveFilter(i int) {
	if i < 0 || i >= len(s.filters) {
		return
	}
	s.filters = slices.Delete(s.filters, i, i+1)
	s.touch()
}

// AddSort sorts by a field, replacing any existing sort on the same field.
// The new sort always moves to the end. The field key must name a
// selected table alias, either as "alias.column" or as an output name
// "alias_column"; other sorts are ignored.
func (s *Selection) AddSort(o ir.Sort) {
	if _, ok := s.sortAlias(o.Field); !ok {
		s.logger.Debug("sort ignored: table not selected", "field", o.Field)
		return
	}
	s.sorts = slices.DeleteFunc(s.sorts, func(existing ir.Sort) bool {
		return existing.Field == o.Field
	})
	s.sorts = append(s.sorts, o)
	s.touch()
}

// RemoveSort removes every sort on field.
func (s *Selection) RemoveSort(field string) {
	n := len(s.sorts)
	s.sorts = slices.DeleteFunc(s.sorts, func(o ir.Sort) bool {
		return o.Field == field
	})
	if len(s.sorts) != n {
		s.touch()
	}
}

// AddJoin appends a join. Both sides must name selected aliases.
func (s *Selection) AddJoin(j ir.Join) {
	if !s.hasAlias(j.LeftTable) || !s.hasAlias(j.RightTable) {
		s.logger.Debug("join ignored: table not selected", "left", j.LeftTable, "right", j.RightTable)
		return
	}
	s.joins = append(s.joins, j)
	s.touch()
}

// RemoveJoin removes the join at index i. Out-of-range indexes are ignored.
func (s *Selection) RemoveJoin(i int) {
	if i < 0 || i >= len(s.joins) {
		return
	}
	s.joins = slices.Delete(s.joins, i, i+1)
	s.touch()
}

// ClearReport empties every collection and discards report data and any
// error. The loading flag and the current template name are kept.
func (s *Selection) ClearReport() {
	s.clearCollections()
	s.reportData = nil
	s.reportColumns = nil
	s.err = nil
	s.touch()
}

func (s *Selection) clearCollections() {
	s.tables = nil
	s.fields = nil
	s.filters = nil
	s.sorts = nil
	s.joins = nil
}

// SetLoading records whether a run is in flight.
func (s *Selection) SetLoading(loading bool) {
	s.loading = loading
}

// SetError records the last run error. nil clears it.
func (s *Selection) SetError(msg *string) {
	if msg == nil {
		s.err = nil
		return
	}
	m := *msg
	s.err = &m
}

// SetReportData replaces the last run's rows and column names.
func (s *Selection) SetReportData(rows []ir.Row, columns []string) {
	s.reportData = cloneRows(rows)
	s.reportColumns = slices.Clone(columns)
}

// SetDatasourceID changes the target datasource.
func (s *Selection) SetDatasourceID(id string) {
	s.datasourceID = id
	s.touch()
}

// Restore replaces every collection with the contents of cfg, including a
// non-empty datasource id. Entries are replayed through the add operations
// without field seeding, so duplicates and references to absent aliases
// are dropped exactly as they would be when added by hand.
func (s *Selection) Restore(cfg ir.QueryConfiguration) {
	c := cfg.Clone()
	s.clearCollections()
	for _, t := range c.Tables {
		if s.tableIndex(t.ID) < 0 && !s.hasAlias(t.Alias) {
			s.tables = append(s.tables, t)
		}
	}
	for _, f := range c.Fields {
		s.AddField(f)
	}
	for _, f := range c.Filters {
		s.AddFilter(f)
	}
	for _, o := range c.OrderBy {
		s.AddSort(o)
	}
	for _, j := range c.Joins {
		s.AddJoin(j)
	}
	if c.DatasourceID != "" {
		s.datasourceID = c.DatasourceID
	}
	s.touch()
}

// LoadTemplate restores a saved template and makes it the current one.
func (s *Selection) LoadTemplate(t ir.Template) {
	s.Restore(t.QueryConfiguration)
	s.currentTemplate = t.Name
	s.logger.Debug("template loaded", "name", t.Name)
}

// SaveAsTemplate names the current selection and returns it as a template
// ready for persistence.
func (s *Selection) SaveAsTemplate(name string) ir.Template {
	s.currentTemplate = name
	return ir.Template{Name: name, QueryConfiguration: s.Configuration()}
}

// Tables returns the selected tables.
func (s *Selection) Tables() []ir.Table { return slices.Clone(s.tables) }

// Fields returns the selected fields.
func (s *Selection) Fields() []ir.Field { return slices.Clone(s.fields) }

// Filters returns the filters in insertion order.
func (s *Selection) Filters() []ir.Filter {
	out := slices.Clone(s.filters)
	for i := range out {
		out[i].Value = ir.Clone(out[i].Value)
	}
	return out
}

// Sorts returns the sorts in priority order.
func (s *Selection) Sorts() []ir.Sort { return slices.Clone(s.sorts) }

// Joins returns the joins in insertion order.
func (s *Selection) Joins() []ir.Join { return slices.Clone(s.joins) }

// ReportData returns the rows of the last run.
func (s *Selection) ReportData() []ir.Row { return cloneRows(s.reportData) }

// ReportColumns returns the column names of the last run.
func (s *Selection) ReportColumns() []string { return slices.Clone(s.reportColumns) }

// IsLoading reports whether a run is in flight.
func (s *Selection) IsLoading() bool { return s.loading }

// Error returns the last run error, or nil.
func (s *Selection) Error() *string {
	if s.err == nil {
		return nil
	}
	m := *s.err
	return &m
}

// CurrentTemplate returns the name of the loaded or saved template.
func (s *Selection) CurrentTemplate() string { return s.currentTemplate }

// DatasourceID returns the target datasource.
func (s *Selection) DatasourceID() string { return s.datasourceID }

func (s *Selection) tableIndex(id string) int {
	return slices.IndexFunc(s.tables, func(t ir.Table) bool {
		return t.ID == id
	})
}

func (s *Selection) hasAlias(alias string) bool {
	return slices.ContainsFunc(s.tables, func(t ir.Table) bool {
		return t.Alias == alias
	})
}

// sortAlias returns the selected alias a sort key names: the part before
// the dot of "alias.column", or the longest selected alias followed by "_"
// and a column in an output name such as "o_total_amount".
func (s *Selection) sortAlias(field string) (string, bool) {
	if alias, column, ok := strings.Cut(field, "."); ok {
		return alias, alias != "" && column != "" && s.hasAlias(alias)
	}
	best := ""
	for _, t := range s.tables {
		prefix := t.Alias + "_"
		if t.Alias != "" && len(t.Alias) > len(best) && len(field) > len(prefix) && strings.HasPrefix(field, prefix) {
			best = t.Alias
		}
	}
	return best, best != ""
}

func (s *Selection) fieldIndex(tableAlias, column string) int {
	return slices.IndexFunc(s.fields, func(f ir.Field) bool {
		return f.TableAlias == tableAlias && f.Column == column
	})
}

func cloneRows(rows []ir.Row) []ir.Row {
	if rows == nil {
		return nil
	}
	out := make([]ir.Row, len(rows))
	for i, r := range rows {
		out[i] = ir.Clone(r).(ir.Object)
	}
	return out
}

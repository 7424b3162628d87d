package catalog

import (
	"context"
	"fmt"
	"slices"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

// Catalog is a read-only snapshot of available tables and their columns.
// Columns are keyed by table name.
type Catalog struct {
	tables []ir.Table
	fields map[string][]string
}

// New builds a catalog from tables and a table-name to columns map.
// Inputs are copied.
func New(tables []ir.Table, fields map[string][]string) *Catalog {
	c := &Catalog{
		tables: slices.Clone(tables),
		fields: make(map[string][]string, len(fields)),
	}
	for name, cols := range fields {
		c.fields[name] = slices.Clone(cols)
	}
	return c
}

// Tables returns every table in declaration order.
func (c *Catalog) Tables() []ir.Table {
	return slices.Clone(c.tables)
}

// Table looks a table up by id.
func (c *Catalog) Table(id string) (ir.Table, bool) {
	for _, t := range c.tables {
		if t.ID == id {
			return t, true
		}
	}
	return ir.Table{}, false
}

// TableByName looks a table up by name or alias.
func (c *Catalog) TableByName(name string) (ir.Table, bool) {
	for _, t := range c.tables {
		if t.Name == name || t.Alias == name {
			return t, true
		}
	}
	return ir.Table{}, false
}

// Fields returns the columns of the named table, or nil if unknown.
func (c *Catalog) Fields(table string) []string {
	return slices.Clone(c.fields[table])
}

// ListTables implements Source, so a snapshot can stand in for a remote
// catalog.
func (c *Catalog) ListTables(_ context.Context) ([]ir.Table, error) {
	return c.Tables(), nil
}

// ListFields implements Source.
func (c *Catalog) ListFields(_ context.Context, table string) ([]string, error) {
	cols, ok := c.fields[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return slices.Clone(cols), nil
}

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

// FromSQLite introspects the user tables of a SQLite database.
// Tables are ordered by name and numbered from 1. Aliases are the initials
// of the underscore-separated name parts (order_items → oi), suffixed with a
// counter when two tables would share one.
func FromSQLite(ctx context.Context, db *sql.DB) (*Catalog, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	rows.Close()

	tables := make([]ir.Table, 0, len(names))
	fields := make(map[string][]string, len(names))
	aliases := make(map[string]int)

	for i, name := range names {
		cols, err := tableColumns(ctx, db, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, ir.Table{
			ID:     strconv.Itoa(i + 1),
			Name:   name,
			Alias:  uniqueAlias(name, aliases),
			Schema: "main",
		})
		fields[name] = cols
	}

	return New(tables, fields), nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func uniqueAlias(name string, seen map[string]int) string {
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part != "" {
			b.WriteByte(part[0])
		}
	}
	alias := strings.ToLower(b.String())
	if alias == "" {
		alias = "t"
	}

	seen[alias]++
	if n := seen[alias]; n > 1 {
		return alias + strconv.Itoa(n)
	}
	return alias
}

package catalog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSQLite(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, status TEXT, total_amount REAL)`,
		`CREATE TABLE order_items (id INTEGER PRIMARY KEY, order_id INTEGER, quantity INTEGER)`,
		`CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE categories (id INTEGER PRIMARY KEY, name TEXT)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	c, err := FromSQLite(context.Background(), db)
	require.NoError(t, err)

	tables := c.Tables()
	require.Len(t, tables, 4)

	names := make([]string, len(tables))
	aliases := make([]string, len(tables))
	for i, tbl := range tables {
		names[i] = tbl.Name
		aliases[i] = tbl.Alias
		assert.Equal(t, "main", tbl.Schema)
	}
	assert.Equal(t, []string{"categories", "customers", "order_items", "orders"}, names)
	assert.Equal(t, []string{"c", "c2", "oi", "o"}, aliases)
	assert.Equal(t, "1", tables[0].ID)

	assert.Equal(t, []string{"id", "status", "total_amount"}, c.Fields("orders"))
	assert.Equal(t, []string{"id", "order_id", "quantity"}, c.Fields("order_items"))
}

func TestFromSQLiteEmpty(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c, err := FromSQLite(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, c.Tables())
}

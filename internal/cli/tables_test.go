package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTablesBuiltin(t *testing.T) {
	res := execute(t, t.TempDir(), "tables")
	require.NoError(t, res.err)

	for _, name := range []string{"orders", "customers", "products", "order_items", "categories"} {
		assert.Contains(t, res.stdout, name)
	}
	assert.Contains(t, res.stdout, "order_number")
}

func TestTablesJSON(t *testing.T) {
	res := execute(t, t.TempDir(), "tables", "--format", "json")
	require.NoError(t, res.err)

	var resp struct {
		Status string      `json:"status"`
		Data   []TableInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 5)
	assert.Equal(t, "orders", resp.Data[0].Name)
	assert.Equal(t, "o", resp.Data[0].Alias)
	assert.Contains(t, resp.Data[0].Fields, "status")
}

func TestTablesCatalogDir(t *testing.T) {
	res := execute(t, t.TempDir(), "tables", "--catalog-dir", "testdata/catalog")
	require.NoError(t, res.err)

	assert.Contains(t, res.stdout, "shipments")
	assert.Contains(t, res.stdout, "carriers")
	assert.Contains(t, res.stdout, "logistics")
	assert.NotContains(t, res.stdout, "orders")
}

func TestTablesCatalogDirMissing(t *testing.T) {
	res := execute(t, t.TempDir(), "tables", "--catalog-dir", "testdata/nope")
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
	assert.Contains(t, res.stdout, "failed to load catalog")
}

func TestFields(t *testing.T) {
	res := execute(t, t.TempDir(), "fields", "customers")
	require.NoError(t, res.err)

	assert.Contains(t, res.stdout, "email")
	assert.Contains(t, res.stdout, "c.email")
}

func TestFieldsUnknownTable(t *testing.T) {
	res := execute(t, t.TempDir(), "fields", "invoices")
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
	assert.Contains(t, res.stdout, "Error [E005]")
	assert.Contains(t, res.stdout, "unknown table: invoices")
}

func TestFieldsMissingArg(t *testing.T) {
	res := execute(t, t.TempDir(), "fields")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "accepts 1 arg")
}

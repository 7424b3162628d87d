package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

func TestBuiltinTables(t *testing.T) {
	c := Builtin()

	tables := c.Tables()
	require.Len(t, tables, 5)
	assert.Equal(t, ir.Table{ID: "1", Name: "orders", Alias: "o", Schema: "public"}, tables[0])
	assert.Equal(t, "cat", tables[4].Alias)
}

func TestBuiltinFields(t *testing.T) {
	c := Builtin()

	assert.Equal(t,
		[]string{"id", "order_number", "customer_id", "total_amount", "created_at", "status"},
		c.Fields("orders"))
	assert.Equal(t, []string{"id", "name", "description", "parent_id"}, c.Fields("categories"))
	assert.Nil(t, c.Fields("invoices"))
}

func TestCatalogLookups(t *testing.T) {
	c := Builtin()

	tbl, ok := c.Table("3")
	require.True(t, ok)
	assert.Equal(t, "products", tbl.Name)

	_, ok = c.Table("99")
	assert.False(t, ok)

	tbl, ok = c.TableByName("oi")
	require.True(t, ok)
	assert.Equal(t, "order_items", tbl.Name)

	tbl, ok = c.TableByName("customers")
	require.True(t, ok)
	assert.Equal(t, "2", tbl.ID)
}

func TestCatalogReturnsCopies(t *testing.T) {
	c := Builtin()

	tables := c.Tables()
	tables[0].Alias = "changed"
	fields := c.Fields("orders")
	fields[0] = "changed"

	assert.Equal(t, "o", c.Tables()[0].Alias)
	assert.Equal(t, "id", c.Fields("orders")[0])
}

func TestNewCopiesInputs(t *testing.T) {
	cols := []string{"id"}
	tables := []ir.Table{{ID: "1", Name: "t", Alias: "t"}}
	c := New(tables, map[string][]string{"t": cols})

	cols[0] = "changed"
	tables[0].Name = "changed"

	assert.Equal(t, []string{"id"}, c.Fields("t"))
	assert.Equal(t, "t", c.Tables()[0].Name)
}

func TestCatalogAsSource(t *testing.T) {
	c := Builtin()
	ctx := context.Background()

	tables, err := c.ListTables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 5)

	cols, err := c.ListFields(ctx, "products")
	require.NoError(t, err)
	assert.Contains(t, cols, "sku")

	_, err = c.ListFields(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

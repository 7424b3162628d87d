package builder

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiepdl65/reportbuilder/internal/catalog"
	"github.com/hiepdl65/reportbuilder/internal/ir"
)

var (
	ordersTable    = ir.Table{ID: "1", Name: "orders", Alias: "o", Schema: "public"}
	customersTable = ir.Table{ID: "2", Name: "customers", Alias: "c", Schema: "public"}
	itemsTable     = ir.Table{ID: "4", Name: "order_items", Alias: "oi", Schema: "public"}
)

func newSelection(t *testing.T) *Selection {
	t.Helper()
	return New(catalog.Builtin())
}

func statusFilter(value string) ir.Filter {
	return ir.Filter{
		TableAlias: "o",
		Column:     "status",
		Operator:   ir.OpEq,
		Value:      ir.String(value),
		DataType:   ir.DataTypeString,
	}
}

func TestNewSelectionIsEmpty(t *testing.T) {
	s := newSelection(t)

	assert.Empty(t, s.Tables())
	assert.Empty(t, s.Fields())
	assert.Empty(t, s.Filters())
	assert.Empty(t, s.Sorts())
	assert.Empty(t, s.Joins())
	assert.False(t, s.IsLoading())
	assert.Nil(t, s.Error())
	assert.Equal(t, DefaultDatasourceID, s.DatasourceID())
	assert.Equal(t, "", s.CurrentTemplate())
}

func TestAddTableSeedsFields(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)

	assert.Equal(t, []ir.Table{ordersTable}, s.Tables())
	assert.Equal(t, []ir.Field{
		{TableAlias: "o", Column: "id", Alias: "o_id", Visible: true},
		{TableAlias: "o", Column: "order_number", Alias: "o_order_number", Visible: true},
		{TableAlias: "o", Column: "customer_id", Alias: "o_customer_id", Visible: true},
	}, s.Fields())
}

func TestAddTableSeedsFewerThanThree(t *testing.T) {
	cat := catalog.New(
		[]ir.Table{{ID: "9", Name: "tags", Alias: "t"}},
		map[string][]string{"tags": {"id"}},
	)
	s := New(cat)
	s.AddTable(ir.Table{ID: "9", Name: "tags", Alias: "t"})

	assert.Len(t, s.Fields(), 1)
}

func TestAddTableUnknownToCatalog(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ir.Table{ID: "42", Name: "invoices", Alias: "inv"})

	assert.Len(t, s.Tables(), 1)
	assert.Empty(t, s.Fields())
	assert.Equal(t, PartiallyConfigured, s.Readiness())
}

func TestAddTableWithoutCatalog(t *testing.T) {
	s := New(nil)
	s.AddTable(ordersTable)

	assert.Len(t, s.Tables(), 1)
	assert.Empty(t, s.Fields())
}

func TestAddTableDedup(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)
	s.AddTable(ordersTable)
	s.AddTable(ir.Table{ID: "1", Name: "renamed", Alias: "r"})

	assert.Len(t, s.Tables(), 1)
	assert.Len(t, s.Fields(), 3)
}

func TestAddTableRejectsAliasInUse(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)
	s.AddTable(ir.Table{ID: "7", Name: "offers", Alias: "o"})

	assert.Equal(t, []ir.Table{ordersTable}, s.Tables())
}

func TestAddFieldDedup(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)
	before := len(s.Fields())

	s.AddField(ir.Field{TableAlias: "o", Column: "id", Alias: "other", Visible: false})
	assert.Len(t, s.Fields(), before)
	assert.Equal(t, "o_id", s.Fields()[0].Alias, "first insertion wins")

	s.AddField(ir.Field{TableAlias: "o", Column: "status", Visible: true})
	assert.Len(t, s.Fields(), before+1)
}

func TestAddFieldRequiresSelectedTable(t *testing.T) {
	s := newSelection(t)
	s.AddField(ir.Field{TableAlias: "o", Column: "id", Visible: true})

	assert.Empty(t, s.Fields())
	assert.Equal(t, Empty, s.Readiness())
}

func TestRemoveField(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)

	s.RemoveField("o", "order_number")
	assert.Len(t, s.Fields(), 2)

	rev := s.Revision()
	s.RemoveField("o", "missing")
	s.RemoveField("x", "id")
	assert.Len(t, s.Fields(), 2)
	assert.Equal(t, rev, s.Revision(), "no-op removals leave the revision alone")
}

func TestFiltersAllowDuplicates(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)

	s.AddFilter(statusFilter("Active"))
	s.AddFilter(statusFilter("Active"))

	assert.Len(t, s.Filters(), 2)
}

func TestFilterRequiresSelectedTable(t *testing.T) {
	s := newSelection(t)
	s.AddFilter(statusFilter("Active"))

	assert.Empty(t, s.Filters())
}

func TestRemoveFilterOutOfRange(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)
	s.AddFilter(statusFilter("Active"))
	s.AddFilter(statusFilter("Pending"))

	for _, idx := range []int{99, 2, -1} {
		s.RemoveFilter(idx)
	}
	require.Len(t, s.Filters(), 2)

	s.RemoveFilter(0)
	require.Len(t, s.Filters(), 1)
	assert.Equal(t, ir.String("Pending"), s.Filters()[0].Value)
}

func TestSortReplacement(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)

	s.AddSort(ir.Sort{Field: "o.id", Direction: ir.Asc})
	s.AddSort(ir.Sort{Field: "o.created_at", Direction: ir.Asc})
	s.AddSort(ir.Sort{Field: "o.id", Direction: ir.Desc})

	assert.Equal(t, []ir.Sort{
		{Field: "o.created_at", Direction: ir.Asc},
		{Field: "o.id", Direction: ir.Desc},
	}, s.Sorts())
}

func TestSortRequiresTablePrefix(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)

	s.AddSort(ir.Sort{Field: "c.name", Direction: ir.Asc})
	s.AddSort(ir.Sort{Field: "o_total_amount", Direction: ir.Desc})

	assert.Equal(t, []ir.Sort{{Field: "o_total_amount", Direction: ir.Desc}}, s.Sorts())
}

func TestSortOnUnselectedAlias(t *testing.T) {
	tests := []struct {
		name  string
		field string
		want  bool
	}{
		{"selected alias column", "o.id", true},
		{"selected alias output name", "o_total_amount", true},
		{"alias sharing a prefix", "oi.quantity", false},
		{"output name sharing a prefix", "oi_quantity", false},
		{"alias without column", "o.", false},
		{"output name without column", "o_", false},
		{"bare alias", "o", false},
		{"no alias", ".id", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSelection(t)
			s.AddTable(ordersTable)

			s.AddSort(ir.Sort{Field: tt.field, Direction: ir.Asc})

			if tt.want {
				assert.Equal(t, []ir.Sort{{Field: tt.field, Direction: ir.Asc}}, s.Sorts())
			} else {
				assert.Empty(t, s.Sorts())
			}
		})
	}
}

func TestSortOnLongerAlias(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)
	s.AddTable(itemsTable)
	s.AddSort(ir.Sort{Field: "oi.quantity", Direction: ir.Desc})
	require.Len(t, s.Sorts(), 1)

	s.RemoveTable(itemsTable.ID)
	assert.Empty(t, s.Sorts())
	checkIntegrity(t, s)
}

func TestRemoveSort(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)
	s.AddSort(ir.Sort{Field: "o.id", Direction: ir.Asc})

	s.RemoveSort("o.status")
	assert.Len(t, s.Sorts(), 1)

	s.RemoveSort("o.id")
	assert.Empty(t, s.Sorts())
}

func TestJoins(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)
	s.AddTable(customersTable)

	join := ir.Join{LeftTable: "o", RightTable: "c", JoinType: ir.JoinLeft, Condition: "o.customer_id = c.id"}
	s.AddJoin(join)
	s.AddJoin(ir.Join{LeftTable: "o", RightTable: "p", JoinType: ir.JoinInner, Condition: "x"})
	require.Equal(t, []ir.Join{join}, s.Joins())

	s.RemoveJoin(5)
	s.RemoveJoin(-1)
	assert.Len(t, s.Joins(), 1)

	s.RemoveJoin(0)
	assert.Empty(t, s.Joins())
}

func TestRemoveTableCascades(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)
	s.AddTable(customersTable)
	s.AddFilter(statusFilter("Active"))
	s.AddFilter(ir.Filter{TableAlias: "c", Column: "name", Operator: ir.OpLike, Value: ir.String("A%"), DataType: ir.DataTypeString})
	s.AddSort(ir.Sort{Field: "o.id", Direction: ir.Asc})
	s.AddSort(ir.Sort{Field: "c.name", Direction: ir.Asc})
	s.AddJoin(ir.Join{LeftTable: "o", RightTable: "c", JoinType: ir.JoinInner, Condition: "o.customer_id = c.id"})

	s.RemoveTable("1")

	assert.Equal(t, []ir.Table{customersTable}, s.Tables())
	for _, f := range s.Fields() {
		assert.Equal(t, "c", f.TableAlias)
	}
	require.Len(t, s.Filters(), 1)
	assert.Equal(t, "c", s.Filters()[0].TableAlias)
	assert.Equal(t, []ir.Sort{{Field: "c.name", Direction: ir.Asc}}, s.Sorts())
	assert.Empty(t, s.Joins())
}

func TestRemoveTableSortPrefixMatch(t *testing.T) {
	// Sort keys are matched by prefix, so removing "o" also drops sorts on
	// "oi" fields.
	s := newSelection(t)
	s.AddTable(ordersTable)
	s.AddTable(itemsTable)
	s.AddSort(ir.Sort{Field: "oi.quantity", Direction: ir.Desc})

	s.RemoveTable("1")

	assert.Empty(t, s.Sorts())
	assert.Len(t, s.Fields(), 3, "oi fields survive")
}

func TestRemoveTableAbsent(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)
	rev := s.Revision()

	s.RemoveTable("99")

	assert.Len(t, s.Tables(), 1)
	assert.Equal(t, rev, s.Revision())
}

func TestOrdersScenario(t *testing.T) {
	s := newSelection(t)

	s.AddTable(ir.Table{ID: "1", Name: "orders", Alias: "o"})
	require.Len(t, s.Fields(), 3)
	for _, f := range s.Fields() {
		assert.Equal(t, "o", f.TableAlias)
		assert.True(t, f.Visible)
	}

	s.AddFilter(statusFilter("Active"))
	require.Len(t, s.Filters(), 1)

	s.RemoveTable("1")

	assert.Empty(t, s.Tables())
	assert.Empty(t, s.Fields())
	assert.Empty(t, s.Filters())
}

func TestClearReport(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)
	s.AddFilter(statusFilter("Active"))
	s.AddSort(ir.Sort{Field: "o.id", Direction: ir.Asc})
	s.SetReportData([]ir.Row{{"o_id": ir.Int(1)}}, []string{"o_id"})
	msg := "boom"
	s.SetError(&msg)
	s.SetLoading(true)
	s.SaveAsTemplate("weekly")

	s.ClearReport()

	assert.Empty(t, s.Tables())
	assert.Empty(t, s.Fields())
	assert.Empty(t, s.Filters())
	assert.Empty(t, s.Sorts())
	assert.Empty(t, s.Joins())
	assert.Empty(t, s.ReportData())
	assert.Empty(t, s.ReportColumns())
	assert.Nil(t, s.Error())
	assert.True(t, s.IsLoading(), "loading belongs to the in-flight run")
	assert.Equal(t, "weekly", s.CurrentTemplate())
	assert.Equal(t, Empty, s.Readiness())
}

func TestTransientSetters(t *testing.T) {
	s := newSelection(t)

	msg := "request failed"
	s.SetError(&msg)
	msg = "mutated"
	require.NotNil(t, s.Error())
	assert.Equal(t, "request failed", *s.Error())

	s.SetError(nil)
	assert.Nil(t, s.Error())

	rows := []ir.Row{{"o_id": ir.Int(1)}}
	s.SetReportData(rows, []string{"o_id"})
	rows[0]["o_id"] = ir.Int(2)
	assert.Equal(t, ir.Int(1), s.ReportData()[0]["o_id"])
	assert.Equal(t, []string{"o_id"}, s.ReportColumns())

	rev := s.Revision()
	s.SetLoading(true)
	assert.True(t, s.IsLoading())
	assert.Equal(t, rev, s.Revision(), "transient state is not a selection change")
}

func TestAccessorsReturnCopies(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)
	s.AddFilter(ir.Filter{TableAlias: "o", Column: "id", Operator: ir.OpIn, Value: ir.List{ir.Int(1), ir.Int(2)}, DataType: ir.DataTypeNumber})

	s.Tables()[0].Alias = "x"
	s.Fields()[0].Column = "x"
	s.Filters()[0].Value.(ir.List)[0] = ir.Int(99)

	assert.Equal(t, "o", s.Tables()[0].Alias)
	assert.Equal(t, "id", s.Fields()[0].Column)
	assert.Equal(t, ir.Int(1), s.Filters()[0].Value.(ir.List)[0])
}

func TestRevisionAdvancesOnMutation(t *testing.T) {
	s := newSelection(t)
	r0 := s.Revision()

	s.AddTable(ordersTable)
	r1 := s.Revision()
	assert.Greater(t, r1, r0)

	s.AddSort(ir.Sort{Field: "o.id", Direction: ir.Asc})
	assert.Greater(t, s.Revision(), r1)
}

// checkIntegrity asserts that every dependent entity references a selected
// alias and that no identity key repeats.
func checkIntegrity(t *testing.T, s *Selection) {
	t.Helper()

	aliases := map[string]bool{}
	ids := map[string]bool{}
	for _, tbl := range s.Tables() {
		assert.False(t, ids[tbl.ID], "duplicate table id %s", tbl.ID)
		assert.False(t, aliases[tbl.Alias], "duplicate alias %s", tbl.Alias)
		ids[tbl.ID] = true
		aliases[tbl.Alias] = true
	}

	fieldKeys := map[string]bool{}
	for _, f := range s.Fields() {
		assert.True(t, aliases[f.TableAlias], "field on %s", f.TableAlias)
		key := f.TableAlias + "." + f.Column
		assert.False(t, fieldKeys[key], "duplicate field %s", key)
		fieldKeys[key] = true
	}
	for _, f := range s.Filters() {
		assert.True(t, aliases[f.TableAlias], "filter on %s", f.TableAlias)
	}
	sortKeys := map[string]bool{}
	for _, o := range s.Sorts() {
		assert.False(t, sortKeys[o.Field], "duplicate sort %s", o.Field)
		sortKeys[o.Field] = true
		assert.True(t, sortNamesAlias(o.Field, aliases), "sort %s on unselected table", o.Field)
	}
	for _, j := range s.Joins() {
		assert.True(t, aliases[j.LeftTable] && aliases[j.RightTable], "join %s-%s", j.LeftTable, j.RightTable)
	}
}

// sortNamesAlias reports whether a sort key names one of aliases, as
// "alias.column" or as an "alias_column" output name.
func sortNamesAlias(field string, aliases map[string]bool) bool {
	if alias, column, ok := strings.Cut(field, "."); ok {
		return column != "" && aliases[alias]
	}
	for a := range aliases {
		if strings.HasPrefix(field, a+"_") && len(field) > len(a)+1 {
			return true
		}
	}
	return false
}

func TestIntegrityUnderRandomEdits(t *testing.T) {
	cat := catalog.Builtin()
	tables := cat.Tables()
	rng := rand.New(rand.NewPCG(7, 11))

	pick := func() ir.Table { return tables[rng.IntN(len(tables))] }

	for round := 0; round < 50; round++ {
		s := New(cat)
		for step := 0; step < 40; step++ {
			tbl := pick()
			cols := cat.Fields(tbl.Name)
			col := cols[rng.IntN(len(cols))]

			switch rng.IntN(9) {
			case 0, 1:
				s.AddTable(tbl)
			case 2:
				s.RemoveTable(tbl.ID)
			case 3:
				s.AddField(ir.Field{TableAlias: tbl.Alias, Column: col, Visible: true})
			case 4:
				s.RemoveField(tbl.Alias, col)
			case 5:
				s.AddFilter(ir.Filter{TableAlias: tbl.Alias, Column: col, Operator: ir.OpIsNotNull, Value: ir.Null{}, DataType: ir.DataTypeString})
			case 6:
				key := tbl.Alias + "." + col
				if rng.IntN(2) == 0 {
					key = tbl.Alias + "_" + col
				}
				s.AddSort(ir.Sort{Field: key, Direction: ir.Desc})
			case 7:
				other := pick()
				s.AddJoin(ir.Join{LeftTable: tbl.Alias, RightTable: other.Alias, JoinType: ir.JoinInner, Condition: "1 = 1"})
			case 8:
				s.RemoveFilter(rng.IntN(4) - 1)
				s.RemoveJoin(rng.IntN(4) - 1)
			}
			checkIntegrity(t, s)
		}
	}
}

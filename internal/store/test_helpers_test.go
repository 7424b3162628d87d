package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

// createTestStore creates a new store in a temp directory with a fixed
// wall clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithNow(fixedNow))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

// createTestConfiguration returns a small orders/customers configuration.
func createTestConfiguration() ir.QueryConfiguration {
	limit := 1000
	return ir.QueryConfiguration{
		DatasourceID: "default",
		Tables: []ir.Table{
			{ID: "1", Name: "orders", Alias: "o", Schema: "public"},
			{ID: "2", Name: "customers", Alias: "c", Schema: "public"},
		},
		Joins: []ir.Join{
			{LeftTable: "o", RightTable: "c", JoinType: ir.JoinInner, Condition: "o.customer_id = c.id"},
		},
		Fields: []ir.Field{
			{TableAlias: "o", Column: "id", Alias: "o_id", Visible: true},
			{TableAlias: "c", Column: "name", Alias: "c_name", Visible: true},
		},
		Filters: []ir.Filter{
			{TableAlias: "o", Column: "status", Operator: ir.OpEq, Value: ir.String("Active"), DataType: ir.DataTypeString},
			{TableAlias: "o", Column: "created_at", Operator: ir.OpGte, Value: ir.NewDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), DataType: ir.DataTypeDate},
		},
		GroupBy: []string{},
		OrderBy: []ir.Sort{{Field: "o.id", Direction: ir.Desc}},
		Limit:   &limit,
	}
}

// createTestRun creates a run with minimal required fields.
func createTestRun(id string, seq int64, kind RunKind) Run {
	return Run{
		ID:            id,
		Seq:           seq,
		Kind:          kind,
		Configuration: createTestConfiguration(),
		Success:       true,
		RowCount:      10,
		ExecutionTime: 0.5,
		Message:       "ok",
	}
}

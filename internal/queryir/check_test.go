package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

func issuePaths(issues []Issue) []string {
	paths := make([]string, len(issues))
	for i, is := range issues {
		paths[i] = is.Path
	}
	return paths
}

func TestCheckValidConfiguration(t *testing.T) {
	report := Check(ordersConfig())

	assert.True(t, report.OK(), "issues: %v", report.Issues)
	assert.Empty(t, report.Warnings())
}

func TestCheckStructValidation(t *testing.T) {
	cfg := ordersConfig()
	cfg.Fields[0].Aggregation = "MEDIAN"
	cfg.Filters[0].Operator = "~"
	cfg.OrderBy[0].Direction = "UP"
	cfg.Limit = limit(0)

	report := Check(cfg)

	require.False(t, report.OK())
	assert.Subset(t, issuePaths(report.Errors()), []string{
		"fields[0].aggregation",
		"filters[0].operator",
		"order_by[0].direction",
		"limit",
	})
}

func TestCheckReferences(t *testing.T) {
	cfg := ordersConfig()
	cfg.Tables = append(cfg.Tables, ir.Table{ID: "1", Name: "dup", Alias: "c"})
	cfg.Fields = append(cfg.Fields, ir.Field{TableAlias: "x", Column: "id", Visible: true})
	cfg.Filters = append(cfg.Filters, ir.Filter{TableAlias: "y", Column: "id", Operator: ir.OpEq, Value: ir.Int(1), DataType: ir.DataTypeNumber})
	cfg.Joins = append(cfg.Joins, ir.Join{LeftTable: "o", RightTable: "z", JoinType: ir.JoinInner, Condition: "o.id = z.order_id"})

	report := Check(cfg)

	assert.Subset(t, issuePaths(report.Errors()), []string{
		"tables[2].id",
		"tables[2].alias",
		"fields[3].table_alias",
		"filters[1].table_alias",
		"joins[1]",
		"joins[1].condition",
	})
}

func TestCheckOperandShapes(t *testing.T) {
	cfg := ordersConfig()
	cfg.Filters = []ir.Filter{
		{TableAlias: "o", Column: "id", Operator: ir.OpBetween, Value: ir.Int(1), DataType: ir.DataTypeNumber},
		{TableAlias: "o", Column: "id", Operator: ir.OpIn, Value: ir.Null{}, DataType: ir.DataTypeNumber},
		{TableAlias: "o", Column: "id", Operator: ir.OpGt, Value: ir.List{ir.Int(1)}, DataType: ir.DataTypeNumber},
	}

	report := Check(cfg)

	assert.Equal(t, []string{"filters[0].value", "filters[1].value", "filters[2].value"}, issuePaths(report.Errors()))
}

func TestCheckWarnings(t *testing.T) {
	cfg := ordersConfig()
	cfg.Tables = append(cfg.Tables, ir.Table{ID: "3", Name: "products", Alias: "p"})
	cfg.Filters = []ir.Filter{
		{TableAlias: "o", Column: "status", Operator: ir.OpIsNull, Value: ir.String("x"), DataType: ir.DataTypeString},
		{TableAlias: "o", Column: "total_amount", Operator: ir.OpGt, Value: ir.Bool(true), DataType: ir.DataTypeNumber},
		{TableAlias: "o", Column: "total_amount", Operator: ir.OpGt, Value: ir.String("10"), DataType: ir.DataTypeNumber},
	}

	report := Check(cfg)

	assert.True(t, report.OK(), "warnings only: %v", report.Issues)
	assert.Equal(t, []string{"filters[0].value", "filters[1].value", "tables[2]"}, issuePaths(report.Warnings()))
}

func TestCheckJoinOrderViaLowering(t *testing.T) {
	cfg := ordersConfig()
	cfg.Tables = append(cfg.Tables, ir.Table{ID: "4", Name: "order_items", Alias: "oi"})
	cfg.Joins = []ir.Join{
		{LeftTable: "oi", RightTable: "c", JoinType: ir.JoinInner, Condition: "oi.id = c.id"},
		{LeftTable: "o", RightTable: "oi", JoinType: ir.JoinInner, Condition: "oi.order_id = o.id"},
	}

	report := Check(cfg)

	require.False(t, report.OK())
	assert.Contains(t, report.Errors()[0].Message, "not joined yet")
}

func TestCheckEmptyConfiguration(t *testing.T) {
	report := Check(ir.QueryConfiguration{})

	require.True(t, report.OK(), "an empty configuration is valid: %v", report.Issues)
	assert.Empty(t, report.Errors())
	assert.Equal(t, []string{"tables", "fields"}, issuePaths(report.Warnings()))
}

func TestCheckRepeatedOutputNames(t *testing.T) {
	cfg := ordersConfig()
	cfg.Fields = []ir.Field{
		{TableAlias: "o", Column: "id", Visible: true},
		{TableAlias: "c", Column: "id", Visible: true},
		{TableAlias: "o", Column: "status", Visible: false},
	}
	cfg.OrderBy = []ir.Sort{{Field: "o.id", Direction: ir.Asc}}

	report := Check(cfg)

	require.True(t, report.OK(), "renaming is not an error: %v", report.Issues)
	warnings := report.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "fields[1]", warnings[0].Path)
	assert.Contains(t, warnings[0].Message, `returned as "id_2"`)
}

func TestIssueString(t *testing.T) {
	i := Issue{Severity: SeverityWarning, Path: "fields", Message: "no visible fields selected"}
	assert.Equal(t, "warning: fields: no visible fields selected", i.String())
}

package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

func TestMarshalSnapshot_Canonical(t *testing.T) {
	rows := 5
	limit := 1000
	result := NewResult()
	result.Trace = []TraceEvent{
		{Seq: 1, Op: OpAddTable, Readiness: "ready"},
		{Seq: 2, Op: OpPreview, Readiness: "ready", Rows: &rows, Columns: []string{"o_id"}},
	}
	result.Configuration = ir.QueryConfiguration{
		DatasourceID: "default",
		Tables:       []ir.Table{{ID: "1", Name: "orders", Alias: "o"}},
		Fields:       []ir.Field{{TableAlias: "o", Column: "id", Alias: "o_id", Visible: true}},
		Limit:        &limit,
	}.Clone()

	data, err := MarshalSnapshot("snap", result)
	require.NoError(t, err)

	assert.Equal(t,
		`{"configuration":{"datasource_id":"default","fields":[{"alias":"o_id","column":"id","table_alias":"o","visible":true}],"filters":[],"group_by":[],"joins":[],"limit":1000,"order_by":[],"tables":[{"alias":"o","id":"1","name":"orders"}]},`+
			`"scenario_name":"snap","trace":[{"op":"add_table","readiness":"ready","seq":1},{"columns":["o_id"],"op":"preview","readiness":"ready","rows":5,"seq":2}]}`,
		string(data))
}

func TestMarshalSnapshot_Deterministic(t *testing.T) {
	scenario := loadTestScenario(t, "template_round_trip")
	result, err := Run(scenario)
	require.NoError(t, err)

	first, err := MarshalSnapshot(scenario.Name, result)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalSnapshot(scenario.Name, result)
		require.NoError(t, err)
		assert.Equal(t, first, again, "iteration %d", i)
	}
}

func TestRunWithGolden(t *testing.T) {
	require.NoError(t, RunWithGolden(t, loadTestScenario(t, "remove_table_cascade")))
}

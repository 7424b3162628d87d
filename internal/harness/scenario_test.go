package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes a scenario YAML file into a temp directory.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
seed: 42
steps:
  - op: add_table
    table: orders
  - op: add_filter
    args:
      table_alias: o
      column: status
      operator: "="
      value: Active
      data_type: string
  - op: remove_filter
    index: 0
  - op: run
    template: weekly
assertions:
  - type: readiness
    expect: ready
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, uint64(42), scenario.Seed)
	require.Len(t, scenario.Steps, 4)
	assert.Len(t, scenario.Assertions, 1)

	assert.Equal(t, OpAddTable, scenario.Steps[0].Op)
	assert.Equal(t, "orders", scenario.Steps[0].Table)
	assert.Equal(t, "Active", scenario.Steps[1].Args["value"])
	require.NotNil(t, scenario.Steps[2].Index)
	assert.Equal(t, 0, *scenario.Steps[2].Index)
	assert.Equal(t, "weekly", scenario.Steps[3].Template)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "assertion instead of assertions"
steps:
  - op: clear
assertion:
  - type: readiness
    expect: empty
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_CatalogRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "catalog"), 0755))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: relative
description: "catalog next to the scenario"
catalog: catalog
steps:
  - op: clear
assertions:
  - type: readiness
    expect: empty
`), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "catalog"), scenario.Catalog)
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "shared"), 0755))
	path := writeScenario(t, `
name: based
description: "catalog relative to base path"
catalog: shared
steps:
  - op: clear
assertions:
  - type: readiness
    expect: empty
`)

	scenario, err := LoadScenarioWithBasePath(path, base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "shared"), scenario.Catalog)
}

func TestLoadScenario_CatalogNotFound(t *testing.T) {
	path := writeScenario(t, `
name: missing_catalog
description: "catalog directory does not exist"
catalog: nowhere
steps:
  - op: clear
assertions:
  - type: readiness
    expect: empty
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog directory not found")
}

func TestValidateScenario(t *testing.T) {
	zero, one := 0, 1
	valid := func() Scenario {
		return Scenario{
			Name:        "s",
			Description: "d",
			Steps:       []Step{{Op: OpClear}},
			Assertions:  []Assertion{{Type: AssertReadiness, Expect: "empty"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *Scenario)
		wantErr string
	}{
		{"valid", func(s *Scenario) {}, ""},
		{"missing name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"missing description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"no steps", func(s *Scenario) { s.Steps = nil }, "steps list is required"},
		{"no assertions", func(s *Scenario) { s.Assertions = nil }, "assertions list is required"},
		{"missing op", func(s *Scenario) { s.Steps = []Step{{}} }, "steps[0]: op is required"},
		{"unknown op", func(s *Scenario) { s.Steps = []Step{{Op: "drop_table"}} }, `unknown op "drop_table"`},
		{"add_table without table", func(s *Scenario) { s.Steps = []Step{{Op: OpAddTable}} }, "table is required for add_table"},
		{"add_filter without args", func(s *Scenario) { s.Steps = []Step{{Op: OpAddFilter}} }, "args is required for add_filter"},
		{"remove_join without index", func(s *Scenario) { s.Steps = []Step{{Op: OpRemoveJoin}} }, "index is required for remove_join"},
		{"load_template without name", func(s *Scenario) { s.Steps = []Step{{Op: OpLoadTemplate}} }, "template is required for load_template"},
		{"remove_filter with index", func(s *Scenario) { s.Steps = []Step{{Op: OpRemoveFilter, Index: &zero}} }, ""},
		{"assertion without type", func(s *Scenario) { s.Assertions = []Assertion{{}} }, "assertions[0]: type is required"},
		{"unknown assertion", func(s *Scenario) { s.Assertions = []Assertion{{Type: "trace_order"}} }, `unknown assertion type "trace_order"`},
		{"bad readiness", func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertReadiness, Expect: "done"}} }, "expect must be one of"},
		{"count bad collection", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertCount, Collection: "widgets", Count: &one}}
		}, "collection must be one of"},
		{"count without count", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertCount, Collection: CollectionFields}}
		}, "non-negative count is required"},
		{"contains rows", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertContains, Collection: CollectionRows, Match: map[string]interface{}{"a": 1}}}
		}, "collection must be one of"},
		{"contains without match", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertContains, Collection: CollectionFields}}
		}, "match is required"},
		{"check without counts", func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertCheck}} }, "errors or warnings is required"},
		{"sql without expect", func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertSQL}} }, "expect is required for sql"},
		{"run_error success", func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertRunError}} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			err := validateScenario(&s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

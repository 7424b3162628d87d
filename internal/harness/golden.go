package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

// Snapshot captures a scenario's trace and final configuration.
// It is serialized as canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName  string                `json:"scenario_name"`
	Trace         []TraceEvent          `json:"trace"`
	Configuration ir.QueryConfiguration `json:"configuration"`
}

// MarshalSnapshot renders the canonical JSON snapshot of a result.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	return ir.CanonicalJSON(Snapshot{
		ScenarioName:  scenarioName,
		Trace:         result.Trace,
		Configuration: result.Configuration,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}

// Package harness provides scenario testing for report selections.
//
// A scenario drives a fresh selection through a list of builder steps,
// runs it against a seeded mock executor, and checks the outcome as an
// executable contract.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	catalog: path/to/catalog    # optional CUE directory, default builtin
//	datasource: warehouse       # optional, default "default"
//	seed: 7                     # optional mock executor seed
//	steps:
//	  - op: add_table
//	    table: orders
//	  - op: add_filter
//	    args: { table_alias: o, column: status, operator: "=", value: Active, data_type: string }
//	  - op: add_sort
//	    args: { field: o.id, direction: DESC }
//	  - op: run
//	    template: active_orders   # optional, saves the selection after the run
//	assertions:
//	  - type: readiness
//	    expect: ready
//	  - type: count
//	    collection: fields
//	    count: 3
//	  - type: contains
//	    collection: filters
//	    match: { column: status }
//
// # Step Operations
//
//   - add_table, remove_table: select or deselect a catalog table by name
//   - add_field, remove_field: args hold table_alias and column
//   - add_filter, add_sort, add_join: args hold the entity in its JSON form
//   - remove_filter, remove_join: index names the entry
//   - remove_sort: args hold the field key
//   - clear: ClearReport
//   - run, preview: execute through the runner
//   - save_template, load_template: persist or restore by template name
//
// add_field defaults visible to true, add_sort defaults direction to ASC and
// add_join defaults join_type to INNER.
//
// # Assertion Types
//
//   - readiness: the final readiness is expect
//   - count: a collection has exactly count entries
//   - contains: some entry of a collection matches every key of match
//   - check: the final configuration has errors/warnings validation issues
//   - sql: the final configuration compiles to exactly expect
//   - run_error: the last run or preview failed with a message containing
//     expect, or succeeded when expect is empty
//
// # Deterministic Testing
//
// The harness uses:
//   - Deterministic logical clock and wall time (testutil.StepClock)
//   - Sequential run ids (testutil.SequentialIDGenerator)
//   - A mock executor seeded from the scenario
//   - In-memory SQLite database (isolated per scenario)
//
// This ensures identical traces across runs for golden file comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/orders.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness

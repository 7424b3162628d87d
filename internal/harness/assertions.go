package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/hiepdl65/reportbuilder/internal/builder"
	"github.com/hiepdl65/reportbuilder/internal/execution"
	"github.com/hiepdl65/reportbuilder/internal/queryir"
	"github.com/hiepdl65/reportbuilder/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s -> %s", event.Seq, event.Op, event.Readiness)
		if event.Error != "" {
			fmt.Fprintf(&buf, " (error: %s)", event.Error)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// AssertionContext provides the final state for evaluating assertions.
type AssertionContext struct {
	Store     *store.Store
	Selection *builder.Selection
	Ctx       context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// Assertions on live state (readiness, count, contains) need actx.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertReadiness, AssertCount, AssertContains:
			if actx == nil || actx.Selection == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a selection", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertReadiness:
				err = assertReadiness(result.Trace, actx.Selection, assertion)
			case AssertCount:
				err = assertCount(result.Trace, actx, assertion)
			default:
				err = assertContains(result.Trace, actx.Selection, assertion)
			}
		case AssertCheck:
			err = assertCheck(result, assertion)
		case AssertSQL:
			err = assertSQL(result, assertion)
		case AssertRunError:
			err = assertRunError(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func assertReadiness(trace []TraceEvent, sel *builder.Selection, assertion Assertion) error {
	actual := sel.Readiness().String()
	if actual == assertion.Expect {
		return nil
	}
	return &AssertionError{
		Type:     AssertReadiness,
		Expected: assertion.Expect,
		Actual:   actual,
		Trace:    trace,
	}
}

// assertCount checks the exact size of a collection.
func assertCount(trace []TraceEvent, actx *AssertionContext, assertion Assertion) error {
	if assertion.Count == nil {
		return fmt.Errorf("count %s: count is required", assertion.Collection)
	}

	var n int
	switch assertion.Collection {
	case CollectionRows:
		n = len(actx.Selection.ReportData())
	case CollectionColumns:
		n = len(actx.Selection.ReportColumns())
	case CollectionHistory, CollectionTemplates:
		if actx.Store == nil {
			return fmt.Errorf("count %s requires a store", assertion.Collection)
		}
		var err error
		n, err = storeCount(actx, assertion.Collection)
		if err != nil {
			return fmt.Errorf("count %s: %w", assertion.Collection, err)
		}
	default:
		entries, err := entities(actx.Selection, assertion.Collection)
		if err != nil {
			return err
		}
		n = len(entries)
	}

	if n == *assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCount,
		Expected: fmt.Sprintf("%d %s", *assertion.Count, assertion.Collection),
		Actual:   fmt.Sprintf("%d %s", n, assertion.Collection),
		Trace:    trace,
	}
}

func storeCount(actx *AssertionContext, collection string) (int, error) {
	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if collection == CollectionTemplates {
		templates, err := actx.Store.ListTemplates(ctx)
		return len(templates), err
	}
	runs, err := actx.Store.ListRuns(ctx, 0, store.DefaultHistoryLimit)
	return len(runs), err
}

// assertContains checks that some entry matches every expected key
// (subset match). Entries are compared in their JSON form.
func assertContains(trace []TraceEvent, sel *builder.Selection, assertion Assertion) error {
	entries, err := entities(sel, assertion.Collection)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if matchArgs(entry, assertion.Match) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertContains,
		Expected: fmt.Sprintf("%s entry matching %v", assertion.Collection, assertion.Match),
		Actual:   fmt.Sprintf("not found among %d entries", len(entries)),
		Trace:    trace,
	}
}

// entities returns a selection collection as generic JSON values.
func entities(sel *builder.Selection, collection string) ([]interface{}, error) {
	var v any
	switch collection {
	case CollectionTables:
		v = sel.Tables()
	case CollectionFields:
		v = sel.Fields()
	case CollectionFilters:
		v = sel.Filters()
	case CollectionSorts:
		v = sel.Sorts()
	case CollectionJoins:
		v = sel.Joins()
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", collection, err)
	}
	var out []interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return out, nil
}

func assertCheck(result *Result, assertion Assertion) error {
	report := queryir.Check(result.Configuration)
	errs, warns := report.Errors(), report.Warnings()

	if (assertion.Errors == nil || *assertion.Errors == len(errs)) &&
		(assertion.Warnings == nil || *assertion.Warnings == len(warns)) {
		return nil
	}

	expected := []string{}
	if assertion.Errors != nil {
		expected = append(expected, fmt.Sprintf("%d errors", *assertion.Errors))
	}
	if assertion.Warnings != nil {
		expected = append(expected, fmt.Sprintf("%d warnings", *assertion.Warnings))
	}
	return &AssertionError{
		Type:     AssertCheck,
		Expected: strings.Join(expected, ", "),
		Actual:   fmt.Sprintf("%d errors, %d warnings: %s", len(errs), len(warns), issueList(report.Issues)),
		Trace:    result.Trace,
	}
}

func issueList(issues []queryir.Issue) string {
	parts := make([]string, len(issues))
	for i, issue := range issues {
		parts[i] = issue.String()
	}
	return "[" + strings.Join(parts, "; ") + "]"
}

func assertSQL(result *Result, assertion Assertion) error {
	query, _, err := execution.Compile(result.Configuration, 0)
	actual := query
	if err != nil {
		actual = "compile error: " + err.Error()
	}
	if err == nil && query == assertion.Expect {
		return nil
	}
	return &AssertionError{
		Type:     AssertSQL,
		Expected: assertion.Expect,
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// assertRunError checks the outcome of the most recent run or preview.
func assertRunError(result *Result, assertion Assertion) error {
	last, ok := result.lastRun()
	if !ok {
		return &AssertionError{
			Type:     AssertRunError,
			Expected: "a run or preview step",
			Actual:   "none in trace",
			Trace:    result.Trace,
		}
	}

	switch {
	case assertion.Expect == "" && last.Error == "":
		return nil
	case assertion.Expect != "" && strings.Contains(last.Error, assertion.Expect):
		return nil
	}

	expected := fmt.Sprintf("error containing %q", assertion.Expect)
	if assertion.Expect == "" {
		expected = "success"
	}
	actual := "success"
	if last.Error != "" {
		actual = fmt.Sprintf("error %q", last.Error)
	}
	return &AssertionError{
		Type:     AssertRunError,
		Expected: expected,
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// matchArgs checks if actual contains all expected keys (subset match).
// Extra keys in actual are ignored.
func matchArgs(actual interface{}, expected map[string]interface{}) bool {
	actualMap, ok := actual.(map[string]interface{})
	if !ok {
		return false
	}

	for key, expectedVal := range expected {
		actualVal, exists := actualMap[key]
		if !exists {
			return false
		}
		if !valuesEqual(actualVal, expectedVal) {
			return false
		}
	}

	return true
}

// valuesEqual compares a decoded JSON value with a YAML value.
// Numbers compare by value since JSON decodes them as float64 and YAML
// as int. Nested maps match by subset, lists element-wise.
func valuesEqual(actual, expected interface{}) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}

	if a, ok := toFloat(actual); ok {
		e, ok := toFloat(expected)
		return ok && a == e
	}

	switch exp := expected.(type) {
	case map[string]interface{}:
		return matchArgs(actual, exp)
	case []interface{}:
		act, ok := actual.([]interface{})
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !valuesEqual(act[i], exp[i]) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(actual, expected)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/hiepdl65/reportbuilder/internal/builder"
)

// Scenario defines a selection-building scenario.
// Scenarios replay builder steps on a fresh selection and assert on the
// resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is an optional CUE catalog directory. Empty means the builtin
	// demo catalog. Relative paths resolve against the scenario's base path.
	Catalog string `yaml:"catalog,omitempty"`

	// Datasource overrides the selection's datasource id.
	Datasource string `yaml:"datasource,omitempty"`

	// Seed makes mock run values reproducible.
	Seed uint64 `yaml:"seed,omitempty"`

	// Steps are applied in order to one selection.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one builder operation.
type Step struct {
	// Op is the operation, see the Op constants.
	Op string `yaml:"op"`

	// Table is a catalog table name (add_table, remove_table).
	Table string `yaml:"table,omitempty"`

	// Index addresses a filter or join (remove_filter, remove_join).
	Index *int `yaml:"index,omitempty"`

	// Args holds the entity in its JSON form (add_field, remove_field,
	// add_filter, add_sort, remove_sort, add_join).
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Template names a template (save_template, load_template) or, on
	// run and preview, saves the selection under that name after success.
	Template string `yaml:"template,omitempty"`
}

// Step operations.
const (
	OpAddTable     = "add_table"
	OpRemoveTable  = "remove_table"
	OpAddField     = "add_field"
	OpRemoveField  = "remove_field"
	OpAddFilter    = "add_filter"
	OpRemoveFilter = "remove_filter"
	OpAddSort      = "add_sort"
	OpRemoveSort   = "remove_sort"
	OpAddJoin      = "add_join"
	OpRemoveJoin   = "remove_join"
	OpClear        = "clear"
	OpRun          = "run"
	OpPreview      = "preview"
	OpSaveTemplate = "save_template"
	OpLoadTemplate = "load_template"
)

// Assertion validates the final trace and state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "readiness": final readiness equals Expect
	// - "count": Collection has exactly Count entries
	// - "contains": an entry of Collection matches Match (subset)
	// - "check": validation finds Errors errors and Warnings warnings
	// - "sql": the final configuration compiles to Expect
	// - "run_error": the last run failed with a message containing Expect,
	//   or succeeded when Expect is empty
	Type string `yaml:"type"`

	// Expect is the expected readiness, SQL text or error substring.
	Expect string `yaml:"expect,omitempty"`

	// Collection names what count and contains look at.
	Collection string `yaml:"collection,omitempty"`

	// Count is the expected collection size (count).
	Count *int `yaml:"count,omitempty"`

	// Match holds the expected entry fields (contains).
	// Subset match - only specified fields are validated.
	Match map[string]interface{} `yaml:"match,omitempty"`

	// Errors and Warnings are the expected issue counts (check). A nil
	// count is not checked.
	Errors   *int `yaml:"errors,omitempty"`
	Warnings *int `yaml:"warnings,omitempty"`
}

// Assertion type constants.
const (
	AssertReadiness = "readiness"
	AssertCount     = "count"
	AssertContains  = "contains"
	AssertCheck     = "check"
	AssertSQL       = "sql"
	AssertRunError  = "run_error"
)

// Collections addressable by count and contains.
const (
	CollectionTables    = "tables"
	CollectionFields    = "fields"
	CollectionFilters   = "filters"
	CollectionSorts     = "sorts"
	CollectionJoins     = "joins"
	CollectionRows      = "rows"
	CollectionColumns   = "columns"
	CollectionHistory   = "history"
	CollectionTemplates = "templates"
)

var (
	entityCollections = []string{
		CollectionTables, CollectionFields, CollectionFilters, CollectionSorts, CollectionJoins,
	}
	countCollections = append(slices.Clone(entityCollections),
		CollectionRows, CollectionColumns, CollectionHistory, CollectionTemplates)
	readinessNames = []string{
		builder.Empty.String(), builder.PartiallyConfigured.String(), builder.Ready.String(),
	}
)

// LoadScenario reads and parses a scenario YAML file. The catalog path
// resolves against the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the catalog path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) && basePath != "" {
		scenario.Catalog = filepath.Join(basePath, scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Catalog != "" {
		info, err := os.Stat(s.Catalog)
		if err != nil {
			return fmt.Errorf("catalog directory not found: %s", s.Catalog)
		}
		if !info.IsDir() {
			return fmt.Errorf("catalog must be a directory: %s", s.Catalog)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single step based on its operation.
func validateStep(index int, step *Step) error {
	switch step.Op {
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	case OpAddTable, OpRemoveTable:
		if step.Table == "" {
			return fmt.Errorf("steps[%d]: table is required for %s", index, step.Op)
		}
	case OpAddField, OpRemoveField, OpAddFilter, OpAddSort, OpRemoveSort, OpAddJoin:
		if len(step.Args) == 0 {
			return fmt.Errorf("steps[%d]: args is required for %s", index, step.Op)
		}
	case OpRemoveFilter, OpRemoveJoin:
		if step.Index == nil {
			return fmt.Errorf("steps[%d]: index is required for %s", index, step.Op)
		}
	case OpSaveTemplate, OpLoadTemplate:
		if step.Template == "" {
			return fmt.Errorf("steps[%d]: template is required for %s", index, step.Op)
		}
	case OpClear, OpRun, OpPreview:
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertReadiness:
		if !slices.Contains(readinessNames, a.Expect) {
			return fmt.Errorf("assertions[%d]: expect must be one of %v for readiness", index, readinessNames)
		}
	case AssertCount:
		if !slices.Contains(countCollections, a.Collection) {
			return fmt.Errorf("assertions[%d]: collection must be one of %v for count", index, countCollections)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for count", index)
		}
	case AssertContains:
		if !slices.Contains(entityCollections, a.Collection) {
			return fmt.Errorf("assertions[%d]: collection must be one of %v for contains", index, entityCollections)
		}
		if len(a.Match) == 0 {
			return fmt.Errorf("assertions[%d]: match is required for contains", index)
		}
	case AssertCheck:
		if a.Errors == nil && a.Warnings == nil {
			return fmt.Errorf("assertions[%d]: errors or warnings is required for check", index)
		}
	case AssertSQL:
		if a.Expect == "" {
			return fmt.Errorf("assertions[%d]: expect is required for sql", index)
		}
	case AssertRunError:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

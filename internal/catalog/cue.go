package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

// LoadError is a catalog declaration error with its CUE position, if any.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadCUE builds a catalog from the CUE package in dir. Tables are declared
// under the top-level "table" struct, keyed by table name:
//
//	table: orders: {
//		id:      "1"
//		alias:   "o"
//		schema:  "public"
//		columns: ["id", "order_number", "total_amount"]
//	}
//
// Tables keep declaration order. Ids and aliases must be unique.
func LoadCUE(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Field: "dir", Message: fmt.Sprintf("catalog directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Field: "dir", Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, &LoadError{Field: "dir", Message: fmt.Sprintf("scanning %s: %v", dir, err)}
	}
	if len(matches) == 0 {
		return nil, &LoadError{Field: "dir", Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Field: "load", Message: "no CUE instances loaded"}
	}
	if inst := instances[0]; inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	value := cuecontext.New().BuildInstance(instances[0])
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	return compileCatalog(value)
}

// compileCatalog extracts tables from a built CUE value.
func compileCatalog(v cue.Value) (*Catalog, error) {
	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, &LoadError{Field: "table", Message: "no tables declared", Pos: v.Pos()}
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var tables []ir.Table
	fields := make(map[string][]string)
	seenID := make(map[string]bool)
	seenAlias := make(map[string]bool)

	for iter.Next() {
		table, cols, err := compileTable(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		if seenID[table.ID] {
			return nil, &LoadError{Field: "id", Message: fmt.Sprintf("duplicate table id %q", table.ID), Pos: iter.Value().Pos()}
		}
		if seenAlias[table.Alias] {
			return nil, &LoadError{Field: "alias", Message: fmt.Sprintf("duplicate table alias %q", table.Alias), Pos: iter.Value().Pos()}
		}
		seenID[table.ID] = true
		seenAlias[table.Alias] = true

		tables = append(tables, table)
		fields[table.Name] = cols
	}

	return New(tables, fields), nil
}

func compileTable(name string, v cue.Value) (ir.Table, []string, error) {
	table := ir.Table{Name: name}

	var err error
	if table.ID, err = requiredString(v, "id"); err != nil {
		return table, nil, err
	}
	if table.Alias, err = requiredString(v, "alias"); err != nil {
		return table, nil, err
	}
	if schemaVal := v.LookupPath(cue.ParsePath("schema")); schemaVal.Exists() {
		if table.Schema, err = schemaVal.String(); err != nil {
			return table, nil, formatCUEError(err)
		}
	}

	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return table, nil, &LoadError{Field: "columns", Message: fmt.Sprintf("table %s: columns are required", name), Pos: v.Pos()}
	}
	list, err := colsVal.List()
	if err != nil {
		return table, nil, formatCUEError(err)
	}

	var cols []string
	for list.Next() {
		col, err := list.Value().String()
		if err != nil {
			return table, nil, formatCUEError(err)
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return table, nil, &LoadError{Field: "columns", Message: fmt.Sprintf("table %s: at least one column is required", name), Pos: colsVal.Pos()}
	}

	return table, cols, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &LoadError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	if s == "" {
		return "", &LoadError{Field: field, Message: field + " must not be empty", Pos: fv.Pos()}
	}
	return s, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &LoadError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}

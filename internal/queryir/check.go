package queryir

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

// Severity grades an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found by Check. Path locates it in the
// configuration ("filters[2].value").
type Issue struct {
	Severity Severity `json:"severity"`
	Path     string   `json:"path"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// Report is the result of Check.
type Report struct {
	Issues []Issue `json:"issues"`
}

// OK reports whether the configuration has no errors. Warnings do not
// count.
func (r Report) OK() bool {
	return len(r.Errors()) == 0
}

// Errors returns the error-severity issues.
func (r Report) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the warning-severity issues.
func (r Report) Warnings() []Issue { return r.filter(SeverityWarning) }

func (r Report) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator with the reportbuilder
// enum tags registered: aggregation, operator and datatype.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		mustRegister(v, "aggregation", func(fl validator.FieldLevel) bool {
			return ir.Aggregation(fl.Field().String()).Valid()
		})
		mustRegister(v, "operator", func(fl validator.FieldLevel) bool {
			return ir.Operator(fl.Field().String()).Valid()
		})
		mustRegister(v, "datatype", func(fl validator.FieldLevel) bool {
			return ir.DataType(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Check inspects cfg and reports every problem found. It never stops at
// the first error.
//
// Errors:
//   - struct validation failures (missing ids, unknown enums, limit < 1)
//   - duplicate table ids or aliases
//   - references to aliases that are not selected
//   - operands that do not fit their operator
//   - join conditions that are not column equalities
//   - sort or group keys that resolve to nothing
//
// Warnings:
//   - tables that no join connects (cross join)
//   - no tables or no visible fields
//   - output names that repeat and are returned with a numeric suffix
//   - IS NULL / IS NOT NULL with a non-null operand
//   - values whose type disagrees with the declared data type
//
// Check is a pure function with no side effects.
func Check(cfg ir.QueryConfiguration) Report {
	c := &checker{}
	c.structural(cfg)
	c.references(cfg)

	// Lowering catches join order and key resolution. It only runs when the
	// checks above found no errors so the report does not repeat itself.
	if !hasErrors(c.issues) {
		if _, err := Lower(cfg); err != nil && !errors.Is(err, ErrNoColumns) && !errors.Is(err, ErrNoTables) {
			c.add(SeverityError, "configuration", "%v", err)
		}
	}

	return Report{Issues: c.issues}
}

type checker struct {
	issues []Issue
}

func (c *checker) add(sev Severity, path, format string, args ...any) {
	c.issues = append(c.issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
}

func hasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (c *checker) structural(cfg ir.QueryConfiguration) {
	err := Validator().Struct(cfg)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			_, path, _ := strings.Cut(fe.Namespace(), ".")
			c.add(SeverityError, path, "failed %q validation (value %v)", fe.Tag(), fe.Value())
		}
	} else if err != nil {
		c.add(SeverityError, "configuration", "%v", err)
	}
}

func (c *checker) references(cfg ir.QueryConfiguration) {
	if len(cfg.Tables) == 0 {
		c.add(SeverityWarning, "tables", "no tables selected")
	}

	aliases := map[string]bool{}
	ids := map[string]bool{}
	for i, t := range cfg.Tables {
		if ids[t.ID] {
			c.add(SeverityError, fmt.Sprintf("tables[%d].id", i), "duplicate table id %q", t.ID)
		}
		if aliases[t.Alias] {
			c.add(SeverityError, fmt.Sprintf("tables[%d].alias", i), "duplicate table alias %q", t.Alias)
		}
		ids[t.ID] = true
		aliases[t.Alias] = true
	}

	visible := 0
	outputs := ir.VisibleOutputNames(cfg.Fields)
	for i, f := range cfg.Fields {
		if !aliases[f.TableAlias] {
			c.add(SeverityError, fmt.Sprintf("fields[%d].table_alias", i), "table alias %q is not selected", f.TableAlias)
		}
		if !f.Visible {
			continue
		}
		if name := outputs[visible]; name != f.OutputName() {
			c.add(SeverityWarning, fmt.Sprintf("fields[%d]", i), "output name %q repeats; column is returned as %q", f.OutputName(), name)
		}
		visible++
	}
	if visible == 0 {
		c.add(SeverityWarning, "fields", "no visible fields selected")
	}

	for i, f := range cfg.Filters {
		c.filter(fmt.Sprintf("filters[%d]", i), f, aliases)
	}

	joined := map[string]bool{}
	for i, j := range cfg.Joins {
		path := fmt.Sprintf("joins[%d]", i)
		for _, side := range []string{j.LeftTable, j.RightTable} {
			if !aliases[side] {
				c.add(SeverityError, path, "table alias %q is not selected", side)
			}
			joined[side] = true
		}
		if pred, err := ParseCondition(j.Condition); err != nil {
			c.add(SeverityError, path+".condition", "%v", err)
		} else {
			for _, ref := range predicateRefs(pred) {
				if !aliases[ref.Table] {
					c.add(SeverityError, path+".condition", "table alias %q is not selected", ref.Table)
				}
			}
		}
	}
	if len(cfg.Tables) > 1 {
		for i, t := range cfg.Tables {
			if !joined[t.Alias] {
				c.add(SeverityWarning, fmt.Sprintf("tables[%d]", i), "table %q is not joined; rows will be cross joined", t.Alias)
			}
		}
	}
}

func (c *checker) filter(path string, f ir.Filter, aliases map[string]bool) {
	if !aliases[f.TableAlias] {
		c.add(SeverityError, path+".table_alias", "table alias %q is not selected", f.TableAlias)
	}

	switch f.Operator {
	case ir.OpIsNull, ir.OpIsNotNull:
		if v := f.Value; v != nil && v.DataType() != ir.DataTypeNull {
			c.add(SeverityWarning, path+".value", "%s ignores its operand", f.Operator)
		}
		return
	case ir.OpIn, ir.OpNotIn:
		if len(operandList(f.Value)) == 0 {
			c.add(SeverityError, path+".value", "%s needs at least one value", f.Operator)
			return
		}
		for _, v := range operandList(f.Value) {
			c.valueType(path+".value", v, f.DataType)
		}
		return
	case ir.OpBetween:
		l, ok := f.Value.(ir.List)
		if !ok || len(l) != 2 {
			c.add(SeverityError, path+".value", "BETWEEN needs a list of two values")
			return
		}
		c.valueType(path+".value", l[0], f.DataType)
		c.valueType(path+".value", l[1], f.DataType)
		return
	}

	if !isScalar(f.Value) {
		c.add(SeverityError, path+".value", "%s needs a scalar value, got %s", f.Operator, dataTypeOf(f.Value))
		return
	}
	c.valueType(path+".value", f.Value, f.DataType)
}

// valueType warns when a scalar's own type disagrees with the declared
// one. Strings are accepted for every declared type since form input is
// text.
func (c *checker) valueType(path string, v ir.Value, declared ir.DataType) {
	if declared == ir.DataTypeList || v == nil {
		return
	}
	actual := v.DataType()
	if actual == declared || actual == ir.DataTypeString {
		return
	}
	c.add(SeverityWarning, path, "value is %s but data_type is %s", actual, declared)
}

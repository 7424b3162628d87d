package queryir

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

// ErrNoTables is returned when lowering a configuration without tables.
var ErrNoTables = errors.New("configuration selects no tables")

// ErrNoColumns is returned when no selected field is visible.
var ErrNoColumns = errors.New("configuration selects no visible fields")

// Lower resolves cfg into a Select.
//
// The first table is the FROM table. Joins are applied in order and each
// introduces its right table; its left table must already be in scope.
// Selected tables no join introduces are cross joined in table order.
// Hidden fields are left out of the output. When fields are aggregated and
// cfg.GroupBy is empty, the plain visible columns become the GROUP BY.
//
// Lower is a pure function.
func Lower(cfg ir.QueryConfiguration) (*Select, error) {
	if len(cfg.Tables) == 0 {
		return nil, ErrNoTables
	}

	byAlias := make(map[string]ir.Table, len(cfg.Tables))
	for _, t := range cfg.Tables {
		if _, dup := byAlias[t.Alias]; dup {
			return nil, fmt.Errorf("duplicate table alias %q", t.Alias)
		}
		byAlias[t.Alias] = t
	}

	l := &lowerer{byAlias: byAlias, inScope: map[string]bool{}}
	sel := &Select{From: tableRef(cfg.Tables[0])}
	l.inScope[cfg.Tables[0].Alias] = true

	for i, j := range cfg.Joins {
		join, err := l.lowerJoin(j)
		if err != nil {
			return nil, fmt.Errorf("join %d: %w", i, err)
		}
		sel.Joins = append(sel.Joins, join)
	}
	for _, t := range cfg.Tables[1:] {
		if !l.inScope[t.Alias] {
			l.inScope[t.Alias] = true
			sel.Joins = append(sel.Joins, Join{Kind: JoinCross, Table: tableRef(t)})
		}
	}

	outputs := ir.VisibleOutputNames(cfg.Fields)
	for i, f := range cfg.Fields {
		if err := l.checkRef(ColumnRef{Table: f.TableAlias, Column: f.Column}); err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		if !f.Visible {
			continue
		}
		sel.Columns = append(sel.Columns, Column{
			Ref:         ColumnRef{Table: f.TableAlias, Column: f.Column},
			Aggregation: f.Aggregation,
			Output:      outputs[len(sel.Columns)],
		})
	}
	if len(sel.Columns) == 0 {
		return nil, ErrNoColumns
	}

	var preds []Predicate
	for i, f := range cfg.Filters {
		pred, err := l.lowerFilter(f)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		preds = append(preds, pred)
	}
	switch len(preds) {
	case 0:
	case 1:
		sel.Where = preds[0]
	default:
		sel.Where = And{Predicates: preds}
	}

	groupBy, err := l.lowerGroupBy(cfg.GroupBy, sel.Columns)
	if err != nil {
		return nil, err
	}
	sel.GroupBy = groupBy

	for i, o := range cfg.OrderBy {
		key, err := l.lowerSort(o, sel.Columns)
		if err != nil {
			return nil, fmt.Errorf("sort %d: %w", i, err)
		}
		sel.OrderBy = append(sel.OrderBy, key)
	}

	if cfg.Limit != nil {
		sel.Limit = *cfg.Limit
	}
	return sel, nil
}

type lowerer struct {
	byAlias map[string]ir.Table
	inScope map[string]bool
}

func tableRef(t ir.Table) TableRef {
	return TableRef{Name: t.Name, Alias: t.Alias, Schema: t.Schema}
}

func (l *lowerer) checkRef(ref ColumnRef) error {
	if _, ok := l.byAlias[ref.Table]; !ok {
		return fmt.Errorf("unknown table alias %q", ref.Table)
	}
	if ref.Column == "" {
		return fmt.Errorf("empty column on %q", ref.Table)
	}
	return nil
}

func (l *lowerer) lowerJoin(j ir.Join) (Join, error) {
	if !j.JoinType.Valid() {
		return Join{}, fmt.Errorf("unknown join type %q", j.JoinType)
	}
	right, ok := l.byAlias[j.RightTable]
	if !ok {
		return Join{}, fmt.Errorf("unknown table alias %q", j.RightTable)
	}
	if _, ok := l.byAlias[j.LeftTable]; !ok {
		return Join{}, fmt.Errorf("unknown table alias %q", j.LeftTable)
	}
	if !l.inScope[j.LeftTable] {
		return Join{}, fmt.Errorf("left table %q is not joined yet", j.LeftTable)
	}
	if l.inScope[j.RightTable] {
		return Join{}, fmt.Errorf("right table %q is already joined", j.RightTable)
	}

	on, err := ParseCondition(j.Condition)
	if err != nil {
		return Join{}, err
	}
	l.inScope[j.RightTable] = true
	for _, ref := range predicateRefs(on) {
		if !l.inScope[ref.Table] {
			return Join{}, fmt.Errorf("condition references %s, which is not in scope", ref)
		}
	}

	return Join{Kind: JoinKind(j.JoinType), Table: tableRef(right), On: on}, nil
}

func (l *lowerer) lowerFilter(f ir.Filter) (Predicate, error) {
	col := ColumnRef{Table: f.TableAlias, Column: f.Column}
	if err := l.checkRef(col); err != nil {
		return nil, err
	}

	switch f.Operator {
	case ir.OpIsNull, ir.OpIsNotNull:
		return IsNull{Column: col, Negate: f.Operator == ir.OpIsNotNull}, nil

	case ir.OpIn, ir.OpNotIn:
		values := operandList(f.Value)
		if len(values) == 0 {
			return nil, fmt.Errorf("%s on %s needs at least one value", f.Operator, col)
		}
		for _, v := range values {
			if !isScalar(v) {
				return nil, fmt.Errorf("%s on %s: %s is not a scalar", f.Operator, col, v.DataType())
			}
		}
		return In{Column: col, Values: values, Negate: f.Operator == ir.OpNotIn}, nil

	case ir.OpBetween:
		values, ok := f.Value.(ir.List)
		if !ok || len(values) != 2 || !isScalar(values[0]) || !isScalar(values[1]) {
			return nil, fmt.Errorf("BETWEEN on %s needs a list of two scalars", col)
		}
		return Between{Column: col, Low: values[0], High: values[1]}, nil

	case ir.OpEq, ir.OpNe, ir.OpGt, ir.OpGte, ir.OpLt, ir.OpLte, ir.OpLike, ir.OpNotLike:
		if !isScalar(f.Value) {
			return nil, fmt.Errorf("%s on %s needs a scalar value, got %s", f.Operator, col, dataTypeOf(f.Value))
		}
		return Compare{Column: col, Op: f.Operator, Value: f.Value}, nil

	default:
		return nil, fmt.Errorf("unknown operator %q", f.Operator)
	}
}

// lowerGroupBy resolves explicit group keys, or derives them from the
// plain columns when any column is aggregated.
func (l *lowerer) lowerGroupBy(keys []string, cols []Column) ([]ColumnRef, error) {
	if len(keys) > 0 {
		refs := make([]ColumnRef, 0, len(keys))
		for _, key := range keys {
			ref, err := l.resolveKey(key, cols)
			if err != nil {
				return nil, fmt.Errorf("group by %q: %w", key, err)
			}
			refs = append(refs, ref)
		}
		return refs, nil
	}

	aggregated := slices.ContainsFunc(cols, func(c Column) bool { return c.Aggregation != "" })
	if !aggregated {
		return nil, nil
	}
	var refs []ColumnRef
	for _, c := range cols {
		if c.Aggregation == "" && !slices.Contains(refs, c.Ref) {
			refs = append(refs, c.Ref)
		}
	}
	return refs, nil
}

// lowerSort resolves a sort key. Output column names win over
// alias.column references.
func (l *lowerer) lowerSort(o ir.Sort, cols []Column) (OrderKey, error) {
	if o.Direction != ir.Asc && o.Direction != ir.Desc {
		return OrderKey{}, fmt.Errorf("unknown direction %q", o.Direction)
	}
	desc := o.Direction == ir.Desc

	if slices.ContainsFunc(cols, func(c Column) bool { return c.Output == o.Field }) {
		return OrderKey{Output: o.Field, Desc: desc}, nil
	}
	ref, ok := ParseColumnRef(o.Field)
	if !ok {
		return OrderKey{}, fmt.Errorf("%q is neither an output column nor alias.column", o.Field)
	}
	if err := l.checkRef(ref); err != nil {
		return OrderKey{}, err
	}
	return OrderKey{Ref: &ref, Desc: desc}, nil
}

func (l *lowerer) resolveKey(key string, cols []Column) (ColumnRef, error) {
	for _, c := range cols {
		if c.Output == key {
			if c.Aggregation != "" {
				return ColumnRef{}, fmt.Errorf("cannot group by aggregated column")
			}
			return c.Ref, nil
		}
	}
	ref, ok := ParseColumnRef(key)
	if !ok {
		return ColumnRef{}, fmt.Errorf("not an output column or alias.column")
	}
	return ref, l.checkRef(ref)
}

// operandList accepts a list, or a lone scalar as a one-element list.
func operandList(v ir.Value) []ir.Value {
	switch val := v.(type) {
	case ir.List:
		return val
	case nil, ir.Null:
		return nil
	default:
		return []ir.Value{val}
	}
}

func isScalar(v ir.Value) bool {
	switch v.(type) {
	case ir.String, ir.Int, ir.Number, ir.Bool, ir.Date:
		return true
	default:
		return false
	}
}

func dataTypeOf(v ir.Value) ir.DataType {
	if v == nil {
		return ir.DataTypeNull
	}
	return v.DataType()
}

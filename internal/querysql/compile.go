package querysql

import (
	"fmt"
	"strings"

	"github.com/hiepdl65/reportbuilder/internal/ir"
	"github.com/hiepdl65/reportbuilder/internal/queryir"
)

// SQLCompiler compiles a lowered query to parameterized SQL for SQLite.
//
// CRITICAL: All values are parameterized, never interpolated.
// CRITICAL: All identifiers are double-quoted.
// Every query has an ORDER BY: the explicit keys, or the first output
// column when there are none.
type SQLCompiler struct {
	// MaxRows caps LIMIT. Zero means no cap.
	MaxRows int
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a queryir.Select to SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q *queryir.Select) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if len(q.Columns) == 0 {
		return "", nil, fmt.Errorf("query has no output columns")
	}

	var (
		b      strings.Builder
		params []any
	)

	b.WriteString("SELECT ")
	for i, col := range q.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		expr, err := columnExpr(col)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(expr)
		b.WriteString(" AS ")
		b.WriteString(quoteIdent(col.Output))
	}

	b.WriteString(" FROM ")
	b.WriteString(tableExpr(q.From))

	for _, j := range q.Joins {
		b.WriteByte(' ')
		b.WriteString(string(j.Kind))
		b.WriteString(" JOIN ")
		b.WriteString(tableExpr(j.Table))
		if j.Kind == queryir.JoinCross {
			continue
		}
		on, onParams, err := c.compilePredicate(j.On)
		if err != nil {
			return "", nil, fmt.Errorf("compile join %s: %w", j.Table.Alias, err)
		}
		b.WriteString(" ON ")
		b.WriteString(on)
		params = append(params, onParams...)
	}

	if q.Where != nil {
		where, whereParams, err := c.compilePredicate(q.Where)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = append(params, whereParams...)
	}

	if len(q.GroupBy) > 0 {
		keys := make([]string, len(q.GroupBy))
		for i, ref := range q.GroupBy {
			keys[i] = refExpr(ref)
		}
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(keys, ", "))
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(c.orderBy(q))

	if limit := c.limit(q.Limit); limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, int64(limit))
	}

	return b.String(), params, nil
}

// orderBy renders the explicit keys, falling back to the first output
// column so results are deterministic.
func (c *SQLCompiler) orderBy(q *queryir.Select) string {
	if len(q.OrderBy) == 0 {
		return quoteIdent(q.Columns[0].Output) + " ASC"
	}
	keys := make([]string, len(q.OrderBy))
	for i, k := range q.OrderBy {
		expr := quoteIdent(k.Output)
		if k.Ref != nil {
			expr = refExpr(*k.Ref)
		}
		if k.Desc {
			keys[i] = expr + " DESC"
		} else {
			keys[i] = expr + " ASC"
		}
	}
	return strings.Join(keys, ", ")
}

func (c *SQLCompiler) limit(n int) int {
	if c.MaxRows > 0 && (n <= 0 || n > c.MaxRows) {
		return c.MaxRows
	}
	return n
}

// compilePredicate compiles a predicate to a WHERE or ON fragment.
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil // Always true
	}

	switch pred := p.(type) {
	case queryir.Compare:
		param, err := valueToParam(pred.Value)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", pred.Column, err)
		}
		return fmt.Sprintf("%s %s ?", refExpr(pred.Column), pred.Op), []any{param}, nil

	case queryir.In:
		if len(pred.Values) == 0 {
			return "", nil, fmt.Errorf("%s: IN needs at least one value", pred.Column)
		}
		params := make([]any, len(pred.Values))
		for i, v := range pred.Values {
			param, err := valueToParam(v)
			if err != nil {
				return "", nil, fmt.Errorf("%s[%d]: %w", pred.Column, i, err)
			}
			params[i] = param
		}
		op := "IN"
		if pred.Negate {
			op = "NOT IN"
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(params)), ", ")
		return fmt.Sprintf("%s %s (%s)", refExpr(pred.Column), op, placeholders), params, nil

	case queryir.IsNull:
		if pred.Negate {
			return refExpr(pred.Column) + " IS NOT NULL", nil, nil
		}
		return refExpr(pred.Column) + " IS NULL", nil, nil

	case queryir.Between:
		low, err := valueToParam(pred.Low)
		if err != nil {
			return "", nil, fmt.Errorf("%s low: %w", pred.Column, err)
		}
		high, err := valueToParam(pred.High)
		if err != nil {
			return "", nil, fmt.Errorf("%s high: %w", pred.Column, err)
		}
		return refExpr(pred.Column) + " BETWEEN ? AND ?", []any{low, high}, nil

	case queryir.ColumnEquals:
		return refExpr(pred.Left) + " = " + refExpr(pred.Right), nil, nil

	case queryir.And:
		return c.compileAnd(pred)

	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileAnd compiles an And predicate to a parenthesized conjunction.
func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // Always true (vacuous truth)
	}

	parts := make([]string, 0, len(and.Predicates))
	var allParams []any
	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		allParams = append(allParams, params...)
	}

	return strings.Join(parts, " AND "), allParams, nil
}

func columnExpr(col queryir.Column) (string, error) {
	ref := refExpr(col.Ref)
	switch col.Aggregation {
	case "":
		return ref, nil
	case ir.AggCount, ir.AggSum, ir.AggAvg, ir.AggMin, ir.AggMax, ir.AggGroupConcat:
		return fmt.Sprintf("%s(%s)", col.Aggregation, ref), nil
	default:
		return "", fmt.Errorf("unsupported aggregation %q on %s", col.Aggregation, col.Ref)
	}
}

// tableExpr renders "name" AS "alias". Schemas are not qualified: SQLite
// has no schema namespaces beyond attached databases.
func tableExpr(t queryir.TableRef) string {
	return quoteIdent(t.Name) + " AS " + quoteIdent(t.Alias)
}

func refExpr(ref queryir.ColumnRef) string {
	return quoteIdent(ref.Table) + "." + quoteIdent(ref.Column)
}

// quoteIdent double-quotes an identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// valueToParam converts a scalar ir.Value to a driver parameter.
// Dates are passed in their text form so they compare against ISO-8601
// TEXT columns.
func valueToParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Number:
		return float64(val), nil
	case ir.Bool:
		return bool(val), nil
	case ir.Date:
		return val.String(), nil
	case nil, ir.Null:
		return nil, nil
	case ir.List:
		return nil, fmt.Errorf("list cannot be used as SQL parameter directly")
	case ir.Object:
		return nil, fmt.Errorf("object cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}

package queryir

import "github.com/hiepdl65/reportbuilder/internal/ir"

// ColumnRef names a column of an aliased table.
type ColumnRef struct {
	Table  string // table alias
	Column string
}

func (r ColumnRef) String() string {
	return r.Table + "." + r.Column
}

// TableRef is a table in the FROM clause.
type TableRef struct {
	Name   string
	Alias  string
	Schema string
}

// Column is one output column of a Select.
type Column struct {
	Ref         ColumnRef
	Aggregation ir.Aggregation // empty for plain columns
	Output      string         // result column name
}

// JoinKind extends ir.JoinType with the implicit cross join used for
// selected tables no join mentions.
type JoinKind string

const (
	JoinInner JoinKind = JoinKind(ir.JoinInner)
	JoinLeft  JoinKind = JoinKind(ir.JoinLeft)
	JoinRight JoinKind = JoinKind(ir.JoinRight)
	JoinFull  JoinKind = JoinKind(ir.JoinFull)
	JoinCross JoinKind = "CROSS"
)

// Join brings one more table into scope. On is nil for cross joins.
type Join struct {
	Kind  JoinKind
	Table TableRef
	On    Predicate
}

// OrderKey is one ORDER BY term. Exactly one of Ref and Output is set:
// Output names a result column, Ref a source column.
type OrderKey struct {
	Ref    *ColumnRef
	Output string
	Desc   bool
}

// Select is a fully resolved query.
//
// Semantics:
//
//	SELECT <Columns> FROM <From> <Joins> WHERE <Where>
//	GROUP BY <GroupBy> ORDER BY <OrderBy> LIMIT <Limit>
type Select struct {
	From    TableRef
	Joins   []Join
	Columns []Column
	Where   Predicate // nil = no filter
	GroupBy []ColumnRef
	OrderBy []OrderKey
	Limit   int // 0 = no limit
}

// Predicate is a filter or join condition.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Compare is <column> <op> <value> for =, !=, <, <=, >, >=, LIKE and
// NOT LIKE. Value is a scalar.
type Compare struct {
	Column ColumnRef
	Op     ir.Operator
	Value  ir.Value
}

func (Compare) predicateNode() {}

// In is <column> IN (<values>), or NOT IN when Negate is set.
type In struct {
	Column ColumnRef
	Values []ir.Value
	Negate bool
}

func (In) predicateNode() {}

// IsNull is <column> IS NULL, or IS NOT NULL when Negate is set.
type IsNull struct {
	Column ColumnRef
	Negate bool
}

func (IsNull) predicateNode() {}

// Between is <column> BETWEEN <low> AND <high>.
type Between struct {
	Column ColumnRef
	Low    ir.Value
	High   ir.Value
}

func (Between) predicateNode() {}

// ColumnEquals is <left> = <right>, the only join condition supported.
type ColumnEquals struct {
	Left  ColumnRef
	Right ColumnRef
}

func (ColumnEquals) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

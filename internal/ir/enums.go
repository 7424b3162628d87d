package ir

import "slices"

// DataType tags a filter value and determines how it is decoded.
type DataType string

const (
	DataTypeString  DataType = "string"
	DataTypeNumber  DataType = "number"
	DataTypeDate    DataType = "date"
	DataTypeBoolean DataType = "boolean"
	DataTypeList    DataType = "list"

	// DataTypeNull and DataTypeObject are only reported by Null and Object
	// values; filters never declare them.
	DataTypeNull   DataType = "null"
	DataTypeObject DataType = "object"
)

// FilterDataTypes lists the data types a filter may declare.
var FilterDataTypes = []DataType{DataTypeString, DataTypeNumber, DataTypeDate, DataTypeBoolean, DataTypeList}

// Valid reports whether dt may be declared on a filter.
func (dt DataType) Valid() bool {
	return slices.Contains(FilterDataTypes, dt)
}

// Aggregation is an aggregate function applied to a selected field.
type Aggregation string

const (
	AggCount       Aggregation = "COUNT"
	AggSum         Aggregation = "SUM"
	AggAvg         Aggregation = "AVG"
	AggMin         Aggregation = "MIN"
	AggMax         Aggregation = "MAX"
	AggGroupConcat Aggregation = "GROUP_CONCAT"
)

// Aggregations lists every supported aggregation.
var Aggregations = []Aggregation{AggCount, AggSum, AggAvg, AggMin, AggMax, AggGroupConcat}

// Valid reports whether a is a known aggregation.
func (a Aggregation) Valid() bool {
	return slices.Contains(Aggregations, a)
}

// Operator is a filter comparison operator.
type Operator string

const (
	OpEq        Operator = "="
	OpNe        Operator = "!="
	OpGt        Operator = ">"
	OpGte       Operator = ">="
	OpLt        Operator = "<"
	OpLte       Operator = "<="
	OpLike      Operator = "LIKE"
	OpNotLike   Operator = "NOT LIKE"
	OpIn        Operator = "IN"
	OpNotIn     Operator = "NOT IN"
	OpIsNull    Operator = "IS NULL"
	OpIsNotNull Operator = "IS NOT NULL"
	OpBetween   Operator = "BETWEEN"
)

// Operators lists every supported filter operator.
var Operators = []Operator{
	OpEq, OpNe, OpGt, OpGte, OpLt, OpLte,
	OpLike, OpNotLike, OpIn, OpNotIn, OpIsNull, OpIsNotNull, OpBetween,
}

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	return slices.Contains(Operators, op)
}

// Unary reports whether op takes no operand.
func (op Operator) Unary() bool {
	return op == OpIsNull || op == OpIsNotNull
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Valid reports whether d is ASC or DESC.
func (d Direction) Valid() bool {
	return d == Asc || d == Desc
}

// JoinType is the kind of join between two tables.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
)

// JoinTypes lists every supported join type.
var JoinTypes = []JoinType{JoinInner, JoinLeft, JoinRight, JoinFull}

// Valid reports whether jt is a known join type.
func (jt JoinType) Valid() bool {
	return slices.Contains(JoinTypes, jt)
}

// Package queryir lowers an ir.QueryConfiguration into a resolved query
// tree that SQL backends compile without consulting the configuration.
//
// ARCHITECTURE:
//
//	[Selection] → [QueryConfiguration] → Check/Lower → [Select] → [querysql]
//
// Lowering resolves every alias and sort key, parses join conditions into
// column equalities and converts each filter into a typed predicate.
// Anything that cannot be resolved is an error; nothing is passed through
// as raw SQL.
//
// SEALED INTERFACES:
//
// Predicate is sealed with a marker method so backends can switch
// exhaustively:
//
//	switch p := pred.(type) {
//	case Compare:
//	case In:
//	case IsNull:
//	case Between:
//	case ColumnEquals:
//	case And:
//	}
//
// Check reports problems without lowering: errors make a configuration
// unrunnable, warnings flag configurations that run but probably do not
// do what the user meant (cross joins, IS NULL with an operand, a value
// whose type disagrees with its declared data type).
package queryir

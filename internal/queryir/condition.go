package queryir

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	andSplit  = regexp.MustCompile(`(?i)\s+and\s+`)
	columnRef = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)$`)
)

// ParseCondition parses a join condition of the form
//
//	a.col = b.col [AND c.col = d.col ...]
//
// Anything else is rejected so conditions never reach SQL verbatim.
func ParseCondition(cond string) (Predicate, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return nil, fmt.Errorf("empty join condition")
	}

	var preds []Predicate
	for _, part := range andSplit.Split(cond, -1) {
		sides := strings.Split(part, "=")
		if len(sides) != 2 {
			return nil, fmt.Errorf("join condition %q: expected column = column", part)
		}
		left, err := parseColumnRef(sides[0])
		if err != nil {
			return nil, fmt.Errorf("join condition %q: %w", part, err)
		}
		right, err := parseColumnRef(sides[1])
		if err != nil {
			return nil, fmt.Errorf("join condition %q: %w", part, err)
		}
		preds = append(preds, ColumnEquals{Left: left, Right: right})
	}

	if len(preds) == 1 {
		return preds[0], nil
	}
	return And{Predicates: preds}, nil
}

// ParseColumnRef parses "alias.column".
func ParseColumnRef(s string) (ColumnRef, bool) {
	ref, err := parseColumnRef(s)
	return ref, err == nil
}

func parseColumnRef(s string) (ColumnRef, error) {
	m := columnRef.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ColumnRef{}, fmt.Errorf("%q is not alias.column", strings.TrimSpace(s))
	}
	return ColumnRef{Table: m[1], Column: m[2]}, nil
}

// predicateRefs lists every column a predicate mentions.
func predicateRefs(p Predicate) []ColumnRef {
	switch pred := p.(type) {
	case Compare:
		return []ColumnRef{pred.Column}
	case In:
		return []ColumnRef{pred.Column}
	case IsNull:
		return []ColumnRef{pred.Column}
	case Between:
		return []ColumnRef{pred.Column}
	case ColumnEquals:
		return []ColumnRef{pred.Left, pred.Right}
	case And:
		var refs []ColumnRef
		for _, sub := range pred.Predicates {
			refs = append(refs, predicateRefs(sub)...)
		}
		return refs
	default:
		return nil
	}
}

package builder

import "github.com/hiepdl65/reportbuilder/internal/ir"

// Readiness summarizes how far a selection is from being runnable.
type Readiness int

const (
	// Empty means no tables are selected.
	Empty Readiness = iota
	// PartiallyConfigured means tables are selected but no fields.
	PartiallyConfigured
	// Ready means at least one table and one field are selected.
	Ready
)

func (r Readiness) String() string {
	switch r {
	case Empty:
		return "empty"
	case PartiallyConfigured:
		return "partially_configured"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// HasSelectedTables reports whether any table is selected.
func (s *Selection) HasSelectedTables() bool {
	return len(s.tables) > 0
}

// HasSelectedFields reports whether any field is selected.
func (s *Selection) HasSelectedFields() bool {
	return len(s.fields) > 0
}

// CanGenerateReport reports whether the selection may be sent to an
// executor.
func (s *Selection) CanGenerateReport() bool {
	return s.HasSelectedTables() && s.HasSelectedFields()
}

// Readiness returns the selection's position in Empty, PartiallyConfigured,
// Ready.
func (s *Selection) Readiness() Readiness {
	return readiness(len(s.tables), len(s.fields))
}

// ReadinessOf applies the selection's readiness rule to an assembled
// configuration.
func ReadinessOf(cfg ir.QueryConfiguration) Readiness {
	return readiness(len(cfg.Tables), len(cfg.Fields))
}

func readiness(tables, fields int) Readiness {
	switch {
	case tables == 0:
		return Empty
	case fields == 0:
		return PartiallyConfigured
	default:
		return Ready
	}
}

package builder

import "github.com/hiepdl65/reportbuilder/internal/ir"

// Configuration assembles the current selection into a QueryConfiguration.
// The result shares no memory with the selection. GroupBy is always empty
// and Limit is always DefaultLimit.
//
// Readiness is not enforced here; callers gate on CanGenerateReport.
func (s *Selection) Configuration() ir.QueryConfiguration {
	limit := DefaultLimit
	return ir.QueryConfiguration{
		DatasourceID: s.datasourceID,
		Tables:       s.Tables(),
		Joins:        s.Joins(),
		Fields:       s.Fields(),
		Filters:      s.Filters(),
		GroupBy:      []string{},
		OrderBy:      s.Sorts(),
		Limit:        &limit,
	}.Clone()
}

// ConfigurationHash is the content hash of Configuration. Unchanged
// selections hash identically.
func (s *Selection) ConfigurationHash() (string, error) {
	return ir.ConfigurationHash(s.Configuration())
}

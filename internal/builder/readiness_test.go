package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadinessLattice(t *testing.T) {
	s := newSelection(t)
	assert.False(t, s.CanGenerateReport())
	assert.Equal(t, Empty, s.Readiness())

	s.AddTable(ordersTable)
	assert.True(t, s.HasSelectedTables())
	assert.True(t, s.HasSelectedFields())
	assert.True(t, s.CanGenerateReport())
	assert.Equal(t, Ready, s.Readiness())

	for _, f := range s.Fields() {
		s.RemoveField(f.TableAlias, f.Column)
	}
	assert.True(t, s.HasSelectedTables())
	assert.False(t, s.CanGenerateReport())
	assert.Equal(t, PartiallyConfigured, s.Readiness())

	s.RemoveTable(ordersTable.ID)
	assert.Equal(t, Empty, s.Readiness())
}

func TestClearReportResetsReadiness(t *testing.T) {
	s := newSelection(t)
	s.AddTable(ordersTable)
	s.ClearReport()

	assert.False(t, s.CanGenerateReport())
	assert.Equal(t, Empty, s.Readiness())
}

func TestReadinessString(t *testing.T) {
	tests := []struct {
		r    Readiness
		want string
	}{
		{Empty, "empty"},
		{PartiallyConfigured, "partially_configured"},
		{Ready, "ready"},
		{Readiness(9), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.r.String())
	}
}

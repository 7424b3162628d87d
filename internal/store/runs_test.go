package store

import (
	"testing"
	"time"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

func TestWriteRun_ListRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	run := createTestRun("r1", 1, RunKindPreview)
	run.TemplateName = "active orders"
	if err := s.WriteRun(ctx, run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	runs, err := s.ListRuns(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}

	got := runs[0]
	if got.ID != "r1" || got.Seq != 1 || got.Kind != RunKindPreview {
		t.Errorf("got id=%s seq=%d kind=%s", got.ID, got.Seq, got.Kind)
	}
	if got.TemplateName != "active orders" {
		t.Errorf("TemplateName = %q", got.TemplateName)
	}
	if !got.Success || got.RowCount != 10 || got.ExecutionTime != 0.5 || got.Message != "ok" {
		t.Errorf("outcome not preserved: %+v", got)
	}
	if got.ConfigHash == "" || len(got.Configuration.Tables) != 2 {
		t.Errorf("configuration not preserved: hash=%q tables=%d", got.ConfigHash, len(got.Configuration.Tables))
	}
	if !got.StartedAt.Equal(fixedNow()) {
		t.Errorf("StartedAt = %v, want store clock %v", got.StartedAt, fixedNow())
	}
}

func TestWriteRun_ExplicitStartedAt(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	started := time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC)
	run := createTestRun("r1", 1, RunKindRun)
	run.StartedAt = started
	if err := s.WriteRun(ctx, run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	runs, err := s.ListRuns(ctx, 0, 10)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if !runs[0].StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", runs[0].StartedAt, started)
	}
}

func TestWriteRun_Validation(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	tests := []struct {
		name string
		run  Run
	}{
		{"missing id", createTestRun("", 1, RunKindRun)},
		{"invalid kind", createTestRun("r1", 1, RunKind("export"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.WriteRun(ctx, tt.run); err == nil {
				t.Error("WriteRun() should fail")
			}
		})
	}
}

func TestListRuns_OrderingAndPaging(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	// Same seq for b and a checks the id tiebreak.
	for _, r := range []Run{
		createTestRun("c", 1, RunKindRun),
		createTestRun("b", 3, RunKindRun),
		createTestRun("a", 3, RunKindPreview),
		createTestRun("d", 2, RunKindRun),
	} {
		if err := s.WriteRun(ctx, r); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", r.ID, err)
		}
	}

	tests := []struct {
		name  string
		skip  int
		limit int
		want  []string
	}{
		{"all", 0, 0, []string{"a", "b", "d", "c"}},
		{"first page", 0, 2, []string{"a", "b"}},
		{"second page", 2, 2, []string{"d", "c"}},
		{"past end", 10, 2, nil},
		{"negative skip", -1, 1, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.ListRuns(ctx, tt.skip, tt.limit)
			if err != nil {
				t.Fatalf("ListRuns() failed: %v", err)
			}
			var ids []string
			for _, r := range runs {
				ids = append(ids, r.ID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("ids = %v, want %v", ids, tt.want)
					break
				}
			}
		})
	}
}

func TestRunsForConfiguration(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	other := createTestRun("other", 2, RunKindRun)
	other.Configuration.Filters = nil
	for _, r := range []Run{createTestRun("r1", 1, RunKindRun), other, createTestRun("r3", 3, RunKindPreview)} {
		if err := s.WriteRun(ctx, r); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", r.ID, err)
		}
	}

	runs, err := s.RunsForConfiguration(ctx, ir.MustConfigurationHash(createTestConfiguration()))
	if err != nil {
		t.Fatalf("RunsForConfiguration() failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "r3" || runs[1].ID != "r1" {
		t.Errorf("got %d runs %+v, want r3 then r1", len(runs), runs)
	}
}

func TestMaxRunSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	seq, err := s.MaxRunSeq(ctx)
	if err != nil {
		t.Fatalf("MaxRunSeq() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("MaxRunSeq() on empty history = %d, want 0", seq)
	}

	for i, id := range []string{"a", "b", "c"} {
		if err := s.WriteRun(ctx, createTestRun(id, int64(i*5+1), RunKindRun)); err != nil {
			t.Fatalf("WriteRun() failed: %v", err)
		}
	}

	seq, err = s.MaxRunSeq(ctx)
	if err != nil {
		t.Fatalf("MaxRunSeq() failed: %v", err)
	}
	if seq != 11 {
		t.Errorf("MaxRunSeq() = %d, want 11", seq)
	}
}

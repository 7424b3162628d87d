package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

func TestSaveTemplate_LoadTemplate(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	tmpl := ir.Template{Name: "active orders", QueryConfiguration: createTestConfiguration()}
	if err := s.SaveTemplate(ctx, tmpl); err != nil {
		t.Fatalf("SaveTemplate() failed: %v", err)
	}

	got, err := s.LoadTemplate(ctx, "active orders")
	if err != nil {
		t.Fatalf("LoadTemplate() failed: %v", err)
	}

	if got.Name != "active orders" {
		t.Errorf("Name = %q, want %q", got.Name, "active orders")
	}
	wantHash := ir.MustConfigurationHash(tmpl.QueryConfiguration)
	if got.ConfigHash != wantHash {
		t.Errorf("ConfigHash = %s, want %s", got.ConfigHash, wantHash)
	}
	if gotHash := ir.MustConfigurationHash(got.QueryConfiguration); gotHash != wantHash {
		t.Errorf("loaded configuration hashes to %s, want %s", gotHash, wantHash)
	}
	if !got.CreatedAt.Equal(fixedNow()) || !got.UpdatedAt.Equal(fixedNow()) {
		t.Errorf("timestamps = %v/%v, want %v", got.CreatedAt, got.UpdatedAt, fixedNow())
	}
}

func TestSaveTemplate_ReplaceKeepsCreatedAt(t *testing.T) {
	now := fixedNow()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), WithNow(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()
	ctx := t.Context()

	first := createTestConfiguration()
	if err := s.SaveTemplate(ctx, ir.Template{Name: "t", QueryConfiguration: first}); err != nil {
		t.Fatalf("SaveTemplate() failed: %v", err)
	}

	now = now.Add(time.Hour)
	second := createTestConfiguration()
	second.Filters = nil
	if err := s.SaveTemplate(ctx, ir.Template{Name: "t", QueryConfiguration: second}); err != nil {
		t.Fatalf("second SaveTemplate() failed: %v", err)
	}

	got, err := s.LoadTemplate(ctx, "t")
	if err != nil {
		t.Fatalf("LoadTemplate() failed: %v", err)
	}
	if len(got.QueryConfiguration.Filters) != 0 {
		t.Errorf("template not replaced: %d filters", len(got.QueryConfiguration.Filters))
	}
	if !got.CreatedAt.Equal(fixedNow()) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, fixedNow())
	}
	if !got.UpdatedAt.Equal(fixedNow().Add(time.Hour)) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, fixedNow().Add(time.Hour))
	}
}

func TestSaveTemplate_RequiresName(t *testing.T) {
	s := createTestStore(t)

	if err := s.SaveTemplate(t.Context(), ir.Template{}); err == nil {
		t.Error("SaveTemplate() should reject an empty name")
	}
}

func TestLoadTemplate_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.LoadTemplate(t.Context(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadTemplate() error = %v, want ErrNotFound", err)
	}
}

func TestListTemplates_OrderedByName(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := s.SaveTemplate(ctx, ir.Template{Name: name, QueryConfiguration: createTestConfiguration()}); err != nil {
			t.Fatalf("SaveTemplate(%q) failed: %v", name, err)
		}
	}

	got, err := s.ListTemplates(ctx)
	if err != nil {
		t.Fatalf("ListTemplates() failed: %v", err)
	}

	want := []string{"alpha", "mid", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("got %d templates, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("templates[%d] = %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestListTemplates_Empty(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ListTemplates(t.Context())
	if err != nil {
		t.Fatalf("ListTemplates() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d templates, want 0", len(got))
	}
}

func TestDeleteTemplate(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	if err := s.SaveTemplate(ctx, ir.Template{Name: "t", QueryConfiguration: createTestConfiguration()}); err != nil {
		t.Fatalf("SaveTemplate() failed: %v", err)
	}
	if err := s.DeleteTemplate(ctx, "t"); err != nil {
		t.Fatalf("DeleteTemplate() failed: %v", err)
	}
	if _, err := s.LoadTemplate(ctx, "t"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadTemplate() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteTemplate(ctx, "t"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteTemplate() error = %v, want ErrNotFound", err)
	}
}

package tags_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"reelvault/internal/archive"
	"reelvault/internal/query"
	"reelvault/internal/services"
	"reelvault/internal/tags"
)

func newService(t *testing.T) (*tags.Service, *archive.Store) {
	t.Helper()
	store, err := archive.OpenPath(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return tags.NewService(store, nil), store
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Cooking", "cooking"},
		{"  Late   Night  Snacks ", "late night snacks"},
		{"CAFÉ", "café"},
		{"İstanbul", "i̇stanbul"},
	}
	for _, tc := range cases {
		got, err := tags.Normalize(tc.in)
		if err != nil {
			t.Errorf("Normalize(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeRejectsEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		if _, err := tags.Normalize(in); !errors.Is(err, services.ErrValidation) {
			t.Errorf("Normalize(%q) error = %v, want validation error", in, err)
		}
	}
}

func TestAssignNormalizesAndDeduplicates(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	if _, err := store.InsertItem(ctx, "7001", "https://example.com/video/7001", time.Now()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	assigned, err := svc.Assign(ctx, "7001", "  Cooking ")
	if err != nil || !assigned {
		t.Fatalf("assign: assigned=%v err=%v", assigned, err)
	}
	// Differently-cased spellings collapse to the same assignment.
	assigned, err = svc.Assign(ctx, "7001", "COOKING")
	if err != nil {
		t.Fatalf("re-assign: %v", err)
	}
	if assigned {
		t.Fatal("case variant must deduplicate")
	}

	list, err := svc.ItemTags(ctx, "7001")
	if err != nil {
		t.Fatalf("item tags: %v", err)
	}
	if len(list) != 1 || list[0].Name != "cooking" {
		t.Fatalf("unexpected assignments: %+v", list)
	}
}

func TestAssignMissingItem(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.Assign(context.Background(), "absent", "cooking"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestUnassignOriginScoped(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	if _, err := store.InsertItem(ctx, "7002", "https://example.com/video/7002", time.Now()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := svc.Assign(ctx, "7002", "cooking"); err != nil {
		t.Fatalf("manual assign: %v", err)
	}
	if _, err := svc.AssignAutomatic(ctx, "7002", "cooking", "autotag", 0.93); err != nil {
		t.Fatalf("automatic assign: %v", err)
	}

	removed, err := svc.Unassign(ctx, "7002", "Cooking", archive.TagOriginManual)
	if err != nil || !removed {
		t.Fatalf("unassign: removed=%v err=%v", removed, err)
	}
	// Second removal is a no-op, and the automatic assignment survives.
	removed, err = svc.Unassign(ctx, "7002", "cooking", archive.TagOriginManual)
	if err != nil {
		t.Fatalf("repeat unassign: %v", err)
	}
	if removed {
		t.Fatal("repeat unassign must be a no-op")
	}
	list, _ := svc.ItemTags(ctx, "7002")
	if len(list) != 1 || list[0].Origin != archive.TagOriginAutomatic {
		t.Fatalf("automatic assignment must survive manual removal: %+v", list)
	}
}

func TestAssignedTagMatchesTagFilter(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	if _, err := store.InsertItem(ctx, "7003", "https://example.com/video/7003", time.Now()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Names whose canonical form differs from a plain lowercase: a case
	// fold (ß), inner whitespace runs, and a decomposed accent.
	for _, name := range []string{"Straße", "  Deep   Dish ", "Café"} {
		if _, err := svc.Assign(ctx, "7003", name); err != nil {
			t.Fatalf("assign %q: %v", name, err)
		}
		_, total, err := store.Search(ctx, query.Spec{Tags: []string{name}}.Normalize())
		if err != nil {
			t.Fatalf("search by %q: %v", name, err)
		}
		if total != 1 {
			t.Fatalf("filtering by %q, the exact string just assigned, found %d items", name, total)
		}
	}
}

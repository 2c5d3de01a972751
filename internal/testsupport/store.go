package testsupport

import (
	"context"
	"testing"
	"time"

	"reelvault/internal/archive"
	"reelvault/internal/config"
)

// MustOpenStore opens an archive store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *archive.Store {
	t.Helper()

	store, err := archive.Open(cfg)
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedItem inserts one pending item for tests.
func SeedItem(t testing.TB, store *archive.Store, id string) {
	t.Helper()

	link := "https://www.tiktok.com/@tester/video/" + id
	inserted, err := store.InsertItem(context.Background(), id, link, time.Now())
	if err != nil {
		t.Fatalf("InsertItem(%s): %v", id, err)
	}
	if !inserted {
		t.Fatalf("InsertItem(%s): already present", id)
	}
}

package api

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reelvault/internal/archive"
	"reelvault/internal/logging"
	"reelvault/internal/query"
	"reelvault/internal/services"
	"reelvault/internal/tags"
	"reelvault/internal/testsupport"
)

func newTestService(t *testing.T) (*ArchiveService, *archive.Store, string) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	service := NewArchiveService(store, tags.NewService(store, logging.NewNop()), cfg.Paths.MediaDir)
	return service, store, cfg.Paths.MediaDir
}

func completeImageDownload(t *testing.T, store *archive.Store, mediaDir, id string, images [][]byte) {
	t.Helper()

	ctx := context.Background()
	for _, to := range []archive.StageStatus{archive.StatusQueued, archive.StatusProcessing} {
		from := archive.StatusPending
		if to == archive.StatusProcessing {
			from = archive.StatusQueued
		}
		ok, err := store.TransitionStage(ctx, id, archive.StageDownload, from, to)
		if err != nil || !ok {
			t.Fatalf("TransitionStage to %s: ok=%v err=%v", to, ok, err)
		}
	}

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for i, payload := range images {
		entry, err := writer.Create(fmt.Sprintf("image_%03d.jpg", i+1))
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := entry.Write(payload); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	bundleName := id + ".zip"
	if err := os.WriteFile(filepath.Join(mediaDir, bundleName), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write bundle: %v", err)
	}

	applied, err := store.SetDownloaded(ctx, id, archive.DownloadResult{
		Title:       "bundle",
		ContentType: archive.ContentImages,
		ImageCount:  len(images),
		MediaPath:   bundleName,
	})
	if err != nil || !applied {
		t.Fatalf("SetDownloaded: applied=%v err=%v", applied, err)
	}
}

func TestItemDetailSplitsTagOrigins(t *testing.T) {
	service, store, _ := newTestService(t)
	testsupport.SeedItem(t, store, "100")

	ctx := context.Background()
	tagger := tags.NewService(store, logging.NewNop())
	if _, err := tagger.Assign(ctx, "100", "cooking"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := tagger.AssignAutomatic(ctx, "100", "travel", "autotag", 0.91); err != nil {
		t.Fatalf("AssignAutomatic: %v", err)
	}

	item, err := service.Item(ctx, "100")
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if len(item.ManualTags) != 1 || item.ManualTags[0].Name != "cooking" {
		t.Fatalf("manual tags = %+v", item.ManualTags)
	}
	if len(item.AutomaticTags) != 1 || item.AutomaticTags[0].Name != "travel" {
		t.Fatalf("automatic tags = %+v", item.AutomaticTags)
	}
	if item.AutomaticTags[0].Confidence != 0.91 {
		t.Fatalf("confidence = %v", item.AutomaticTags[0].Confidence)
	}
}

func TestItemMissingIsNotFound(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Item(context.Background(), "404")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestImageBundleAccess(t *testing.T) {
	service, store, mediaDir := newTestService(t)
	testsupport.SeedItem(t, store, "200")
	completeImageDownload(t, store, mediaDir, "200", [][]byte{
		[]byte("first image"),
		[]byte("second image"),
	})

	ctx := context.Background()
	names, err := service.ImageNames(ctx, "200")
	if err != nil {
		t.Fatalf("ImageNames: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("names = %v, want 2 entries", names)
	}

	payload, err := service.Image(ctx, "200", 1)
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if string(payload) != "second image" {
		t.Fatalf("payload = %q", payload)
	}

	if _, err := service.Image(ctx, "200", 5); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("out-of-range err = %v, want ErrNotFound", err)
	}
}

func TestMediaPathRequiresDownload(t *testing.T) {
	service, store, _ := newTestService(t)
	testsupport.SeedItem(t, store, "300")

	if _, _, err := service.MediaPath(context.Background(), "300"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestItemsProjectsPagination(t *testing.T) {
	service, store, _ := newTestService(t)
	base := time.Now()
	for i := 0; i < 3; i++ {
		id := string(rune('a' + i))
		if _, err := store.InsertItem(context.Background(), id, "https://example.test/"+id, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("InsertItem: %v", err)
		}
	}

	page, err := service.Items(context.Background(), query.Spec{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("page 2 items = %d, want 1", len(page.Items))
	}
	if page.Pagination.Total != 3 || page.Pagination.TotalPages != 2 || !page.Pagination.HasPrev {
		t.Fatalf("pagination = %+v", page.Pagination)
	}
}

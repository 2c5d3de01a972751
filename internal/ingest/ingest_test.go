package ingest_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelvault/internal/archive"
	"reelvault/internal/ingest"
)

func newService(t *testing.T) (*ingest.Service, *archive.Store) {
	t.Helper()
	store, err := archive.OpenPath(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return ingest.NewService(store, nil), store
}

func TestExtractID(t *testing.T) {
	cases := []struct {
		link    string
		want    string
		wantErr bool
	}{
		{"https://www.example.com/@cook/video/7301234567890123456", "7301234567890123456", false},
		{"https://www.example.com/@cook/photo/7309999999999999999?lang=en", "7309999999999999999", false},
		{"7301234567890123456", "7301234567890123456", false},
		{"https://www.example.com/@cook/video/", "", true},
		{"https://www.example.com/about", "", true},
		{"not a link", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ingest.ExtractID(tc.link)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ExtractID(%q) expected error, got %q", tc.link, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ExtractID(%q): %v", tc.link, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ExtractID(%q) = %q, want %q", tc.link, got, tc.want)
		}
	}
}

func TestBatchOutcomes(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	records := []ingest.Record{
		{Link: "https://www.example.com/@a/video/1001", FavoritedAt: time.Now()},
		{Link: "https://www.example.com/@a/video/1001", FavoritedAt: time.Now()},
		{Link: "https://www.example.com/about"},
	}
	outcomes, err := svc.Batch(ctx, records)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Status != ingest.OutcomeInserted || outcomes[0].ID != "1001" {
		t.Fatalf("unexpected first outcome: %+v", outcomes[0])
	}
	if outcomes[1].Status != ingest.OutcomeSkipped {
		t.Fatalf("duplicate must be skipped: %+v", outcomes[1])
	}
	if outcomes[2].Status != ingest.OutcomeInvalid || outcomes[2].Reason == "" {
		t.Fatalf("unparseable link must be invalid with reason: %+v", outcomes[2])
	}
}

func TestParseExport(t *testing.T) {
	payload := `{
        "Your Activity": {
            "Favorite Videos": {
                "FavoriteVideoList": [
                    {"Link": "https://www.example.com/@a/video/2001", "Date": "2025-11-03 18:22:05"},
                    {"Link": "https://www.example.com/@b/video/2002", "Date": "bogus"}
                ]
            }
        }
    }`
	records, err := ingest.ParseExport(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("parse export: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	want := time.Date(2025, 11, 3, 18, 22, 5, 0, time.UTC)
	if !records[0].FavoritedAt.Equal(want) {
		t.Fatalf("unexpected favorited time: %v", records[0].FavoritedAt)
	}
	if !records[1].FavoritedAt.IsZero() {
		t.Fatalf("malformed date must yield zero time: %v", records[1].FavoritedAt)
	}
}

func TestExportRoundTripIntoStore(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	records := []ingest.Record{{Link: "https://www.example.com/@a/video/3001", FavoritedAt: time.Now()}}
	if _, err := svc.Batch(ctx, records); err != nil {
		t.Fatalf("batch: %v", err)
	}
	item, err := store.GetItem(ctx, "3001")
	if err != nil || item == nil {
		t.Fatalf("expected item 3001 in store, err=%v", err)
	}
	if item.DownloadStatus != archive.StatusPending {
		t.Fatalf("ingested item must await download, got %s", item.DownloadStatus)
	}
}

func TestBatchAppliesMetadataAndContentType(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	records := []ingest.Record{{
		Link:        "https://www.example.com/@a/photo/4001",
		FavoritedAt: time.Now(),
		Title:       "slideshow",
		Uploader:    "a",
		ContentType: "images",
		ImageCount:  4,
	}}
	if _, err := svc.Batch(ctx, records); err != nil {
		t.Fatalf("batch: %v", err)
	}

	item, err := store.GetItem(ctx, "4001")
	if err != nil || item == nil {
		t.Fatalf("expected item 4001 in store, err=%v", err)
	}
	if item.Title != "slideshow" || item.ImageCount != 4 {
		t.Fatalf("metadata not stored: %+v", item)
	}
	if item.ContentType != archive.ContentImages {
		t.Fatalf("content type = %q, want images", item.ContentType)
	}
	if item.TranscriptionStatus != archive.StatusNotApplicable {
		t.Fatalf("transcription status = %s, want not_applicable", item.TranscriptionStatus)
	}
	if item.OCRStatus != archive.StatusPending {
		t.Fatalf("ocr status = %s, want pending", item.OCRStatus)
	}

	// Re-ingesting the same link with different metadata must not clobber.
	records[0].Title = "changed"
	outcomes, err := svc.Batch(ctx, records)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if outcomes[0].Status != ingest.OutcomeSkipped {
		t.Fatalf("duplicate outcome = %+v", outcomes[0])
	}
	item, err = store.GetItem(ctx, "4001")
	if err != nil || item == nil {
		t.Fatalf("GetItem after re-ingest: %v", err)
	}
	if item.Title != "slideshow" {
		t.Fatalf("duplicate ingest overwrote title: %q", item.Title)
	}
}

package archive_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"reelvault/internal/archive"
	"reelvault/internal/query"
)

func newStore(t *testing.T) *archive.Store {
	t.Helper()
	store, err := archive.OpenPath(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedItem(t *testing.T, store *archive.Store, id string) {
	t.Helper()
	inserted, err := store.InsertItem(context.Background(), id, "https://example.com/video/"+id, time.Now())
	if err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
	if !inserted {
		t.Fatalf("expected %s to be newly inserted", id)
	}
}

// claimAndComplete walks an item through download with the given result.
func claimAndComplete(t *testing.T, store *archive.Store, id string, result archive.DownloadResult) {
	t.Helper()
	ctx := context.Background()
	for _, step := range [][2]archive.StageStatus{
		{archive.StatusPending, archive.StatusQueued},
		{archive.StatusQueued, archive.StatusProcessing},
	} {
		ok, err := store.TransitionStage(ctx, id, archive.StageDownload, step[0], step[1])
		if err != nil || !ok {
			t.Fatalf("transition %s %s->%s: ok=%v err=%v", id, step[0], step[1], ok, err)
		}
	}
	ok, err := store.SetDownloaded(ctx, id, result)
	if err != nil || !ok {
		t.Fatalf("set downloaded %s: ok=%v err=%v", id, ok, err)
	}
}

func TestInsertItemIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	inserted, err := store.InsertItem(ctx, "7001", "https://example.com/video/7001", time.Now())
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}
	inserted, err = store.InsertItem(ctx, "7001", "https://example.com/video/7001", time.Now())
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatal("duplicate insert must report not inserted")
	}

	item, err := store.GetItem(ctx, "7001")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.DownloadStatus != archive.StatusPending {
		t.Fatalf("expected pending download, got %s", item.DownloadStatus)
	}
	if item.TranscriptionStatus != archive.StatusPending || item.OCRStatus != archive.StatusPending {
		t.Fatalf("derived statuses should start pending: %+v", item)
	}
}

func TestGetItemMissing(t *testing.T) {
	store := newStore(t)
	item, err := store.GetItem(context.Background(), "absent")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil item, got %+v", item)
	}
}

func TestTransitionStageCAS(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedItem(t, store, "7002")

	ok, err := store.TransitionStage(ctx, "7002", archive.StageDownload, archive.StatusPending, archive.StatusQueued)
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	// Second claim loses the race: the column no longer holds pending.
	ok, err = store.TransitionStage(ctx, "7002", archive.StageDownload, archive.StatusPending, archive.StatusQueued)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if ok {
		t.Fatal("duplicate claim must not apply")
	}
}

func TestSetDownloadedResolvesApplicability(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedItem(t, store, "7003")

	claimAndComplete(t, store, "7003", archive.DownloadResult{
		Title:       "pasta night",
		ContentType: archive.ContentVideo,
		MediaPath:   "7003.mp4",
	})

	item, err := store.GetItem(ctx, "7003")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.DownloadStatus != archive.StatusDone {
		t.Fatalf("expected done download, got %s", item.DownloadStatus)
	}
	if item.TranscriptionStatus != archive.StatusPending {
		t.Fatalf("video must keep transcription pending, got %s", item.TranscriptionStatus)
	}
	if item.OCRStatus != archive.StatusNotApplicable {
		t.Fatalf("video must not be OCR eligible, got %s", item.OCRStatus)
	}

	// Result write is guarded on processing; a second apply must miss.
	ok, err := store.SetDownloaded(ctx, "7003", archive.DownloadResult{ContentType: archive.ContentVideo})
	if err != nil {
		t.Fatalf("replayed set downloaded: %v", err)
	}
	if ok {
		t.Fatal("replayed result write must not apply")
	}
}

func TestEligibleForStageGating(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedItem(t, store, "v1")
	seedItem(t, store, "i1")

	eligible, err := store.EligibleForStage(ctx, archive.StageDownload, 0)
	if err != nil {
		t.Fatalf("eligible download: %v", err)
	}
	if len(eligible) != 2 {
		t.Fatalf("expected both items eligible for download, got %d", len(eligible))
	}

	// Nothing is transcribable or OCRable before download.
	for _, stage := range []archive.Stage{archive.StageTranscription, archive.StageOCR, archive.StageAutotag} {
		eligible, err = store.EligibleForStage(ctx, stage, 0)
		if err != nil {
			t.Fatalf("eligible %s: %v", stage, err)
		}
		if len(eligible) != 0 {
			t.Fatalf("expected no %s-eligible items pre-download, got %d", stage, len(eligible))
		}
	}

	claimAndComplete(t, store, "v1", archive.DownloadResult{ContentType: archive.ContentVideo})
	claimAndComplete(t, store, "i1", archive.DownloadResult{ContentType: archive.ContentImages, ImageCount: 3})

	eligible, err = store.EligibleForStage(ctx, archive.StageTranscription, 0)
	if err != nil {
		t.Fatalf("eligible transcription: %v", err)
	}
	if len(eligible) != 1 || eligible[0].ID != "v1" {
		t.Fatalf("expected exactly v1 transcribable, got %+v", eligible)
	}

	eligible, err = store.EligibleForStage(ctx, archive.StageOCR, 0)
	if err != nil {
		t.Fatalf("eligible ocr: %v", err)
	}
	if len(eligible) != 1 || eligible[0].ID != "i1" {
		t.Fatalf("expected exactly i1 OCRable, got %+v", eligible)
	}

	// Autotag needs derived text first.
	eligible, err = store.EligibleForStage(ctx, archive.StageAutotag, 0)
	if err != nil {
		t.Fatalf("eligible autotag: %v", err)
	}
	if len(eligible) != 0 {
		t.Fatalf("expected no autotag-eligible items, got %d", len(eligible))
	}
}

func TestReclaimStale(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedItem(t, store, "7004")

	if ok, _ := store.TransitionStage(ctx, "7004", archive.StageDownload, archive.StatusPending, archive.StatusQueued); !ok {
		t.Fatal("claim failed")
	}
	if ok, _ := store.TransitionStage(ctx, "7004", archive.StageDownload, archive.StatusQueued, archive.StatusProcessing); !ok {
		t.Fatal("processing claim failed")
	}

	// A cutoff before the claim leaves it alone.
	reclaimed, err := store.ReclaimStale(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("reclaim (fresh): %v", err)
	}
	if reclaimed != 0 {
		t.Fatalf("fresh claim reclaimed: %d", reclaimed)
	}

	// A cutoff after the heartbeat reclaims the claim back to pending.
	reclaimed, err = store.ReclaimStale(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("reclaim (stale): %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected one reclaimed claim, got %d", reclaimed)
	}

	item, _ := store.GetItem(ctx, "7004")
	if item.DownloadStatus != archive.StatusPending {
		t.Fatalf("expected pending after reclaim, got %s", item.DownloadStatus)
	}
	if item.LastHeartbeat != nil {
		t.Fatal("heartbeat must be cleared on reclaim")
	}
}

func TestMarkStageFailedAndRetry(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedItem(t, store, "7005")

	store.TransitionStage(ctx, "7005", archive.StageDownload, archive.StatusPending, archive.StatusQueued)
	store.TransitionStage(ctx, "7005", archive.StageDownload, archive.StatusQueued, archive.StatusProcessing)

	ok, err := store.MarkStageFailed(ctx, "7005", archive.StageDownload, "fetch timed out")
	if err != nil || !ok {
		t.Fatalf("mark failed: ok=%v err=%v", ok, err)
	}
	item, _ := store.GetItem(ctx, "7005")
	if item.DownloadStatus != archive.StatusFailed || item.StageError != "fetch timed out" {
		t.Fatalf("unexpected failure state: %+v", item)
	}

	retried, err := store.RetryFailed(ctx, archive.StageDownload, "7005")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("expected one retried item, got %d", retried)
	}
	item, _ = store.GetItem(ctx, "7005")
	if item.DownloadStatus != archive.StatusPending || item.StageError != "" {
		t.Fatalf("unexpected post-retry state: %+v", item)
	}
}

func TestTagAssignmentOriginScoped(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedItem(t, store, "7006")

	if ok, err := store.AssignTag(ctx, "7006", "cooking", archive.TagOriginManual, "", 0); err != nil || !ok {
		t.Fatalf("manual assign: ok=%v err=%v", ok, err)
	}
	if ok, err := store.AssignTag(ctx, "7006", "cooking", archive.TagOriginAutomatic, "autotag", 0.91); err != nil || !ok {
		t.Fatalf("automatic assign: ok=%v err=%v", ok, err)
	}
	// Re-assign is a no-op.
	if ok, err := store.AssignTag(ctx, "7006", "cooking", archive.TagOriginManual, "", 0); err != nil || ok {
		t.Fatalf("duplicate assign: ok=%v err=%v", ok, err)
	}

	// Removing the manual assignment leaves the automatic one intact.
	if ok, err := store.UnassignTag(ctx, "7006", "cooking", archive.TagOriginManual); err != nil || !ok {
		t.Fatalf("unassign manual: ok=%v err=%v", ok, err)
	}
	tags, err := store.ItemTags(ctx, "7006")
	if err != nil {
		t.Fatalf("item tags: %v", err)
	}
	if len(tags) != 1 || tags[0].Origin != archive.TagOriginAutomatic {
		t.Fatalf("expected only the automatic assignment, got %+v", tags)
	}
	if tags[0].Confidence < 0.9 {
		t.Fatalf("expected stored confidence, got %v", tags[0].Confidence)
	}
}

func TestListTagsCounts(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedItem(t, store, "a")
	seedItem(t, store, "b")

	store.AssignTag(ctx, "a", "cooking", archive.TagOriginManual, "", 0)
	store.AssignTag(ctx, "b", "cooking", archive.TagOriginAutomatic, "autotag", 0.8)
	store.AssignTag(ctx, "b", "travel", archive.TagOriginManual, "", 0)

	counts, err := store.ListTags(ctx)
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("expected two tag names, got %+v", counts)
	}
	if counts[0].Name != "cooking" || counts[0].Manual != 1 || counts[0].Automatic != 1 {
		t.Fatalf("unexpected cooking counts: %+v", counts[0])
	}
	if counts[1].Name != "travel" || counts[1].Total() != 1 {
		t.Fatalf("unexpected travel counts: %+v", counts[1])
	}

	// Zero-assignment tags do not exist.
	store.UnassignTag(ctx, "b", "travel", archive.TagOriginManual)
	counts, _ = store.ListTags(ctx)
	if len(counts) != 1 {
		t.Fatalf("expected travel to disappear, got %+v", counts)
	}
}

func TestComputeStats(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	stats, err := store.ComputeStats(ctx)
	if err != nil {
		t.Fatalf("stats on empty archive: %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}

	seedItem(t, store, "v1")
	seedItem(t, store, "i1")
	claimAndComplete(t, store, "v1", archive.DownloadResult{ContentType: archive.ContentVideo})
	store.AssignTag(ctx, "v1", "cooking", archive.TagOriginManual, "", 0)

	stats, err = store.ComputeStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 || stats.Videos != 1 || stats.Downloaded != 1 || stats.Tagged != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSearchFacets(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedItem(t, store, "v1")
	seedItem(t, store, "i1")
	claimAndComplete(t, store, "v1", archive.DownloadResult{Title: "pasta carbonara", ContentType: archive.ContentVideo})
	claimAndComplete(t, store, "i1", archive.DownloadResult{Title: "rome trip", ContentType: archive.ContentImages, ImageCount: 2})

	// Walk v1 through transcription.
	store.TransitionStage(ctx, "v1", archive.StageTranscription, archive.StatusPending, archive.StatusQueued)
	store.TransitionStage(ctx, "v1", archive.StageTranscription, archive.StatusQueued, archive.StatusProcessing)
	store.SetTranscription(ctx, "v1", "today we make carbonara")

	items, total, err := store.Search(ctx, query.Spec{
		Download:      query.Downloaded,
		Transcription: query.StageDone,
	}.Normalize())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != "v1" {
		t.Fatalf("expected exactly v1, got total=%d items=%+v", total, items)
	}

	// Deep search reaches the transcript.
	items, total, err = store.Search(ctx, query.Spec{Search: "carbonara", SearchDeep: true}.Normalize())
	if err != nil {
		t.Fatalf("deep search: %v", err)
	}
	if total != 1 || items[0].ID != "v1" {
		t.Fatalf("deep search missed transcript: total=%d", total)
	}

	// Shallow search still matches the title.
	_, total, err = store.Search(ctx, query.Spec{Search: "rome"}.Normalize())
	if err != nil {
		t.Fatalf("shallow search: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected one title match, got %d", total)
	}
}

func TestSearchTagModes(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		seedItem(t, store, id)
	}
	store.AssignTag(ctx, "a", "cooking", archive.TagOriginManual, "", 0)
	store.AssignTag(ctx, "a", "italian", archive.TagOriginManual, "", 0)
	store.AssignTag(ctx, "b", "cooking", archive.TagOriginManual, "", 0)

	_, total, err := store.Search(ctx, query.Spec{Tags: []string{"cooking", "italian"}, TagMode: query.TagModeAnd}.Normalize())
	if err != nil {
		t.Fatalf("AND search: %v", err)
	}
	if total != 1 {
		t.Fatalf("AND expected 1, got %d", total)
	}

	_, total, err = store.Search(ctx, query.Spec{Tags: []string{"cooking", "italian"}, TagMode: query.TagModeOr}.Normalize())
	if err != nil {
		t.Fatalf("OR search: %v", err)
	}
	if total != 2 {
		t.Fatalf("OR expected 2, got %d", total)
	}

	_, total, err = store.Search(ctx, query.Spec{TagPresence: query.TagsUntagged}.Normalize())
	if err != nil {
		t.Fatalf("untagged search: %v", err)
	}
	if total != 1 {
		t.Fatalf("untagged expected 1, got %d", total)
	}
}

func TestSearchFacetNeutrality(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedItem(t, store, "v1")
	seedItem(t, store, "i1")
	claimAndComplete(t, store, "v1", archive.DownloadResult{ContentType: archive.ContentVideo})

	// not_downloaded with contradictory facets still returns the full
	// not-downloaded set.
	_, total, err := store.Search(ctx, query.Spec{
		Download:      query.NotDownloaded,
		ContentTypes:  []string{"video"},
		Transcription: query.StageDone,
		Tags:          []string{"cooking"},
	}.Normalize())
	if err != nil {
		t.Fatalf("neutralized search: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected the one not-downloaded item, got %d", total)
	}
}

func TestSearchPaginationStable(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("item-%d", i)
		if _, err := store.InsertItem(ctx, id, "https://example.com/video/"+id, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	var seen []string
	for page := 1; page <= 3; page++ {
		items, total, err := store.Search(ctx, query.Spec{Page: page, PageSize: 2}.Normalize())
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if total != 5 {
			t.Fatalf("page %d total = %d", page, total)
		}
		for _, item := range items {
			seen = append(seen, item.ID)
		}
	}

	want := []string{"item-4", "item-3", "item-2", "item-1", "item-0"}
	if len(seen) != len(want) {
		t.Fatalf("expected %d items across pages, got %v", len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("unstable ordering at %d: got %v want %v", i, seen, want)
		}
	}
}

package orchestrator_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"reelvault/internal/archive"
	"reelvault/internal/config"
	"reelvault/internal/dispatch"
	"reelvault/internal/orchestrator"
	"reelvault/internal/query"
	"reelvault/internal/services/classify"
	"reelvault/internal/services/source"
	"reelvault/internal/stages/autotag"
	"reelvault/internal/stages/download"
	"reelvault/internal/stages/ocr"
	"reelvault/internal/stages/transcribe"
	"reelvault/internal/tags"
	"reelvault/internal/worker"
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

func seed(t *testing.T, store *archive.Store, id string) {
	t.Helper()
	if _, err := store.InsertItem(context.Background(), id, "https://example.com/video/"+id, time.Now()); err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
}

func TestEnqueueStageIdempotent(t *testing.T) {
	store := newStore(t)
	queue := dispatch.NewMemoryQueue()
	orch := orchestrator.New(store, queue, orchestrator.Options{}, nil)
	ctx := context.Background()

	seed(t, store, "7001")
	seed(t, store, "7002")

	queued, err := orch.EnqueueStage(ctx, archive.StageDownload)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if queued != 2 {
		t.Fatalf("expected 2 queued, got %d", queued)
	}

	// Re-running finds nothing pending: exactly one hint per item.
	queued, err = orch.EnqueueStage(ctx, archive.StageDownload)
	if err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}
	if queued != 0 {
		t.Fatalf("re-enqueue must be a no-op, got %d", queued)
	}
}

func TestSweepStaleRequeuesAbandonedClaims(t *testing.T) {
	store := newStore(t)
	queue := dispatch.NewMemoryQueue()
	orch := orchestrator.New(store, queue, orchestrator.Options{HeartbeatTimeout: time.Nanosecond}, nil)
	ctx := context.Background()

	seed(t, store, "7003")
	if _, err := orch.EnqueueStage(ctx, archive.StageDownload); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	// The claim's heartbeat is now older than the nanosecond timeout.
	time.Sleep(time.Millisecond)

	reclaimed, err := orch.SweepStale(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected 1 reclaimed claim, got %d", reclaimed)
	}

	queued, err := orch.EnqueueStage(ctx, archive.StageDownload)
	if err != nil {
		t.Fatalf("post-sweep enqueue: %v", err)
	}
	if queued != 1 {
		t.Fatalf("reclaimed item must be requeueable, got %d", queued)
	}
}

// Stub service clients driving the real stage handlers.

type stubSource struct{ media map[string]*source.Media }

func (s *stubSource) Fetch(ctx context.Context, sourceURL string) (*source.Media, error) {
	return s.media[sourceURL], nil
}
func (s *stubSource) Ping(context.Context) error { return nil }

type stubSpeech struct{ text string }

func (s *stubSpeech) Transcribe(context.Context, string) (string, error) { return s.text, nil }
func (s *stubSpeech) Ping(context.Context) error                         { return nil }

type stubVision struct{ text string }

func (s *stubVision) ExtractText(context.Context, []byte) (string, error) { return s.text, nil }
func (s *stubVision) Ping(context.Context) error                          { return nil }

type stubClassify struct{ predictions []classify.Prediction }

func (s *stubClassify) Classify(context.Context, string, []string) ([]classify.Prediction, error) {
	return s.predictions, nil
}
func (s *stubClassify) Ping(context.Context) error { return nil }

// drain synchronously handles every hint currently on the stage's queue.
func drain(t *testing.T, queue dispatch.Queue, pool *worker.Pool) {
	t.Helper()
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		msg, err := queue.Receive(ctx, pool.Stage())
		cancel()
		if err != nil {
			return
		}
		pool.Handle(context.Background(), msg)
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	store := newStore(t)
	queue := dispatch.NewMemoryQueue()
	mediaDir := t.TempDir()
	ctx := context.Background()

	seed(t, store, "v1")
	seed(t, store, "i1")

	src := &stubSource{media: map[string]*source.Media{
		"https://example.com/video/v1": {
			Title:       "pasta carbonara",
			ContentType: archive.ContentVideo,
			Video:       []byte("mp4 bytes"),
		},
		"https://example.com/video/i1": {
			Title:       "rome trip",
			ContentType: archive.ContentImages,
			Images:      [][]byte{[]byte("img1"), []byte("img2")},
		},
	}}
	tagger := tags.NewService(store, nil)
	autotagCfg := config.Autotag{Labels: []string{"cooking", "travel"}, ConfidenceThreshold: 0.8}

	pools := map[archive.Stage]*worker.Pool{
		archive.StageDownload: worker.New(archive.StageDownload,
			download.New(store, src, mediaDir, nil), store, queue, worker.Options{}, nil),
		archive.StageTranscription: worker.New(archive.StageTranscription,
			transcribe.New(store, &stubSpeech{text: "today we make carbonara"}, mediaDir, nil), store, queue, worker.Options{}, nil),
		archive.StageOCR: worker.New(archive.StageOCR,
			ocr.New(store, &stubVision{text: "colosseum"}, mediaDir, nil), store, queue, worker.Options{}, nil),
		archive.StageAutotag: worker.New(archive.StageAutotag,
			autotag.New(store, &stubClassify{predictions: []classify.Prediction{
				{Label: "cooking", Score: 0.95},
				{Label: "travel", Score: 0.2},
			}}, tagger, autotagCfg, nil), store, queue, worker.Options{}, nil),
	}
	orch := orchestrator.New(store, queue, orchestrator.Options{}, nil)

	// Download pass: both items.
	queued, err := orch.EnqueueStage(ctx, archive.StageDownload)
	if err != nil || queued != 2 {
		t.Fatalf("enqueue downloads: queued=%d err=%v", queued, err)
	}
	drain(t, queue, pools[archive.StageDownload])

	// Transcription pass: only the video qualifies.
	queued, err = orch.EnqueueStage(ctx, archive.StageTranscription)
	if err != nil {
		t.Fatalf("enqueue transcriptions: %v", err)
	}
	if queued != 1 {
		t.Fatalf("expected only v1 transcribable, got %d", queued)
	}
	drain(t, queue, pools[archive.StageTranscription])

	// OCR pass: only the carousel qualifies.
	queued, err = orch.EnqueueStage(ctx, archive.StageOCR)
	if err != nil || queued != 1 {
		t.Fatalf("enqueue ocr: queued=%d err=%v", queued, err)
	}
	drain(t, queue, pools[archive.StageOCR])

	// Autotag pass: both now carry derived text.
	queued, err = orch.EnqueueStage(ctx, archive.StageAutotag)
	if err != nil || queued != 2 {
		t.Fatalf("enqueue autotag: queued=%d err=%v", queued, err)
	}
	drain(t, queue, pools[archive.StageAutotag])

	v1, _ := store.GetItem(ctx, "v1")
	if v1.TranscriptionStatus != archive.StatusDone || v1.OCRStatus != archive.StatusNotApplicable {
		t.Fatalf("unexpected v1 statuses: %+v", v1)
	}
	i1, _ := store.GetItem(ctx, "i1")
	if i1.OCRStatus != archive.StatusDone || i1.TranscriptionStatus != archive.StatusNotApplicable {
		t.Fatalf("unexpected i1 statuses: %+v", i1)
	}
	if i1.OCRText != "colosseum\n\ncolosseum" {
		t.Fatalf("unexpected ocr text: %q", i1.OCRText)
	}

	// The query surface sees exactly the transcribed download.
	items, total, err := store.Search(ctx, query.Spec{
		Download:      query.Downloaded,
		Transcription: query.StageDone,
	}.Normalize())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || items[0].ID != "v1" {
		t.Fatalf("expected exactly v1, got total=%d", total)
	}

	// Confident predictions became automatic tags on both items.
	for _, id := range []string{"v1", "i1"} {
		itemTags, err := store.ItemTags(ctx, id)
		if err != nil {
			t.Fatalf("tags for %s: %v", id, err)
		}
		if len(itemTags) != 1 || itemTags[0].Name != "cooking" || itemTags[0].Origin != archive.TagOriginAutomatic {
			t.Fatalf("unexpected tags on %s: %+v", id, itemTags)
		}
	}
}

package archive

import (
	"fmt"
	"strings"
	"time"
)

// Stage identifies one enrichment stage of the item lifecycle.
type Stage string

const (
	StageDownload      Stage = "download"
	StageTranscription Stage = "transcription"
	StageOCR           Stage = "ocr"
	StageAutotag       Stage = "autotag"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{StageDownload, StageTranscription, StageOCR, StageAutotag}

// ParseStage validates a stage name from an external surface (CLI, API).
func ParseStage(raw string) (Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Stages {
		if stage == known {
			return stage, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", raw)
}

// statusColumn maps a stage to its items column. The column set is fixed,
// so an unknown stage is a programming error.
func statusColumn(stage Stage) string {
	switch stage {
	case StageDownload:
		return "download_status"
	case StageTranscription:
		return "transcription_status"
	case StageOCR:
		return "ocr_status"
	case StageAutotag:
		return "autotag_status"
	default:
		panic(fmt.Sprintf("archive: no status column for stage %q", stage))
	}
}

// StageStatus is the per-stage lifecycle value. not_applicable and done are
// terminal; failed returns to pending only through an explicit retry.
type StageStatus string

const (
	StatusNotApplicable StageStatus = "not_applicable"
	StatusPending       StageStatus = "pending"
	StatusQueued        StageStatus = "queued"
	StatusProcessing    StageStatus = "processing"
	StatusDone          StageStatus = "done"
	StatusFailed        StageStatus = "failed"
)

// ContentType distinguishes single-video posts from image carousels.
type ContentType string

const (
	ContentVideo  ContentType = "video"
	ContentImages ContentType = "images"
)

// TagOrigin records who created a tag assignment.
type TagOrigin string

const (
	TagOriginManual    TagOrigin = "manual"
	TagOriginAutomatic TagOrigin = "automatic"
)

// Item is one archived favorite. Metadata fields are empty until the
// download stage populates them; content type is immutable once set.
type Item struct {
	ID          string
	Title       string
	Uploader    string
	UploaderID  string
	Description string
	SourceURL   string
	ContentType ContentType

	DurationSeconds float64
	ImageCount      int
	MediaPath       string
	ThumbnailPath   string

	CreatedAt   time.Time // upload time at the source, zero until downloaded
	FavoritedAt time.Time
	IngestedAt  time.Time
	UpdatedAt   time.Time

	DownloadStatus      StageStatus
	TranscriptionStatus StageStatus
	OCRStatus           StageStatus
	AutotagStatus       StageStatus

	TranscriptionText string
	OCRText           string
	StageError        string

	SourceGone    bool
	SourcePrivate bool

	LastHeartbeat *time.Time
}

// Status returns the item's lifecycle value for the given stage.
func (i *Item) Status(stage Stage) StageStatus {
	switch stage {
	case StageDownload:
		return i.DownloadStatus
	case StageTranscription:
		return i.TranscriptionStatus
	case StageOCR:
		return i.OCRStatus
	case StageAutotag:
		return i.AutotagStatus
	default:
		return ""
	}
}

// Downloaded reports whether the item's media is on disk.
func (i *Item) Downloaded() bool {
	return i.DownloadStatus == StatusDone
}

// ItemMetadata holds the descriptive fields an ingestion record may carry
// ahead of the download.
type ItemMetadata struct {
	Title           string
	Uploader        string
	UploaderID      string
	Description     string
	DurationSeconds float64
	ImageCount      int
}

// DownloadResult carries everything the download stage learns about an
// item: the source metadata plus where the media landed on disk.
type DownloadResult struct {
	Title           string
	Uploader        string
	UploaderID      string
	Description     string
	ContentType     ContentType
	DurationSeconds float64
	ImageCount      int
	MediaPath       string
	ThumbnailPath   string
	CreatedAt       time.Time
}

// Tag is one tag assignment on an item.
type Tag struct {
	Name        string
	Origin      TagOrigin
	SourceStage string
	Confidence  float64
	AssignedAt  time.Time
}

// TagCount is an aggregate row from ListTags.
type TagCount struct {
	Name      string
	Manual    int
	Automatic int
}

// Total returns the combined assignment count for the tag.
func (t TagCount) Total() int { return t.Manual + t.Automatic }

// Stats summarizes archive progress.
type Stats struct {
	Total       int
	Videos      int
	Images      int
	Downloaded  int
	Transcribed int
	OCRd        int
	Autotagged  int
	Tagged      int
	Failed      int
	SourceGone  int
}

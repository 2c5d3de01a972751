package api

import (
	"time"

	"reelvault/internal/archive"
	"reelvault/internal/query"
)

// ItemSummary is the list-view projection of an archive item.
type ItemSummary struct {
	ID                  string  `json:"id"`
	Title               string  `json:"title"`
	Uploader            string  `json:"uploader"`
	ContentType         string  `json:"content_type"`
	DurationSeconds     float64 `json:"duration_seconds,omitempty"`
	ImageCount          int     `json:"image_count,omitempty"`
	FavoritedAt         string  `json:"favorited_at"`
	DownloadStatus      string  `json:"download_status"`
	TranscriptionStatus string  `json:"transcription_status"`
	OCRStatus           string  `json:"ocr_status"`
	AutotagStatus       string  `json:"autotag_status"`
	HasThumbnail        bool    `json:"has_thumbnail"`
	SourceGone          bool    `json:"source_gone,omitempty"`
	SourcePrivate       bool    `json:"source_private,omitempty"`
}

// ItemDetail extends the summary with full text and tag assignments.
type ItemDetail struct {
	ItemSummary
	UploaderID        string    `json:"uploader_id,omitempty"`
	Description       string    `json:"description,omitempty"`
	SourceURL         string    `json:"source_url"`
	CreatedAt         string    `json:"created_at,omitempty"`
	IngestedAt        string    `json:"ingested_at"`
	TranscriptionText string    `json:"transcription_text,omitempty"`
	OCRText           string    `json:"ocr_text,omitempty"`
	StageError        string    `json:"stage_error,omitempty"`
	ManualTags        []TagView `json:"manual_tags"`
	AutomaticTags     []TagView `json:"automatic_tags"`
}

// TagView is one tag assignment on an item.
type TagView struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence,omitempty"`
	AssignedAt string  `json:"assigned_at,omitempty"`
}

// TagCountView is one aggregate row of the tag list.
type TagCountView struct {
	Name      string `json:"name"`
	Manual    int    `json:"manual"`
	Automatic int    `json:"automatic"`
	Total     int    `json:"total"`
}

// PageView is one page of search results with its pagination metadata.
type PageView struct {
	Items      []ItemSummary    `json:"items"`
	Pagination query.Pagination `json:"pagination"`
}

// StatsView summarizes archive progress.
type StatsView struct {
	Total       int `json:"total"`
	Videos      int `json:"videos"`
	Images      int `json:"images"`
	Downloaded  int `json:"downloaded"`
	Transcribed int `json:"transcribed"`
	OCRd        int `json:"ocrd"`
	Autotagged  int `json:"autotagged"`
	Tagged      int `json:"tagged"`
	Failed      int `json:"failed"`
	SourceGone  int `json:"source_gone"`
}

// StageHealthView reports one stage's readiness.
type StageHealthView struct {
	Stage  string `json:"stage"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// StatusView is the daemon status response.
type StatusView struct {
	Running     bool              `json:"running"`
	PID         int               `json:"pid"`
	ArchivePath string            `json:"archive_path"`
	Stages      []StageHealthView `json:"stages,omitempty"`
}

func formatViewTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func summarize(item *archive.Item) ItemSummary {
	return ItemSummary{
		ID:                  item.ID,
		Title:               item.Title,
		Uploader:            item.Uploader,
		ContentType:         string(item.ContentType),
		DurationSeconds:     item.DurationSeconds,
		ImageCount:          item.ImageCount,
		FavoritedAt:         formatViewTime(item.FavoritedAt),
		DownloadStatus:      string(item.DownloadStatus),
		TranscriptionStatus: string(item.TranscriptionStatus),
		OCRStatus:           string(item.OCRStatus),
		AutotagStatus:       string(item.AutotagStatus),
		HasThumbnail:        item.ThumbnailPath != "",
		SourceGone:          item.SourceGone,
		SourcePrivate:       item.SourcePrivate,
	}
}

func detail(item *archive.Item, assignments []archive.Tag) ItemDetail {
	view := ItemDetail{
		ItemSummary:       summarize(item),
		UploaderID:        item.UploaderID,
		Description:       item.Description,
		SourceURL:         item.SourceURL,
		CreatedAt:         formatViewTime(item.CreatedAt),
		IngestedAt:        formatViewTime(item.IngestedAt),
		TranscriptionText: item.TranscriptionText,
		OCRText:           item.OCRText,
		StageError:        item.StageError,
		ManualTags:        []TagView{},
		AutomaticTags:     []TagView{},
	}
	for _, tag := range assignments {
		tv := TagView{Name: tag.Name, AssignedAt: formatViewTime(tag.AssignedAt)}
		if tag.Origin == archive.TagOriginAutomatic {
			tv.Confidence = tag.Confidence
			view.AutomaticTags = append(view.AutomaticTags, tv)
		} else {
			view.ManualTags = append(view.ManualTags, tv)
		}
	}
	return view
}

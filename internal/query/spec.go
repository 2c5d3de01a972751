package query

import (
	"strings"

	"reelvault/internal/textutil"
)

// DownloadSelector filters on whether an item's media has been fetched.
type DownloadSelector string

const (
	DownloadAll    DownloadSelector = "all"
	Downloaded     DownloadSelector = "downloaded"
	NotDownloaded  DownloadSelector = "not_downloaded"
)

// StageSelector filters on a derived-text stage (transcription or OCR).
type StageSelector string

const (
	StageAll     StageSelector = "all"
	StageDone    StageSelector = "done"
	StageNotDone StageSelector = "not_done"
)

// TagPresence filters on whether an item carries any tag assignment.
type TagPresence string

const (
	TagsAll      TagPresence = "all"
	TagsTagged   TagPresence = "tagged"
	TagsUntagged TagPresence = "untagged"
)

// TagMode combines an explicit tag name set.
type TagMode string

const (
	// TagModeAnd requires the item to carry every listed tag.
	TagModeAnd TagMode = "and"
	// TagModeOr requires the item to carry at least one listed tag.
	TagModeOr TagMode = "or"
)

const (
	// DefaultPageSize applies when a request leaves the page size unset.
	DefaultPageSize = 100
	// MaxPageSize caps a single page of results.
	MaxPageSize = 500
)

// Spec is an immutable faceted filter request. Facets left in their neutral
// value contribute no predicate. ContentTypes distinguishes nil (no filter)
// from an empty, non-nil slice (empty subset, zero results by design).
type Spec struct {
	Search     string
	SearchDeep bool // also match transcription and OCR text

	Page     int
	PageSize int

	Download      DownloadSelector
	ContentTypes  []string
	Transcription StageSelector
	OCR           StageSelector
	TagPresence   TagPresence
	Tags          []string
	TagMode       TagMode

	// tagsInert preserves requested tag names without applying them.
	// The not-downloaded reset makes downstream facets inert rather than
	// clearing the requested values.
	tagsInert bool
}

// Normalize returns a copy with defaults applied and the facet-neutrality
// rule enforced: selecting not_downloaded forces content-type, transcription,
// OCR, and tag facets to their neutral value (tag names are kept but inert).
func (s Spec) Normalize() Spec {
	out := s
	out.Search = strings.TrimSpace(s.Search)
	if out.Page < 1 {
		out.Page = 1
	}
	if out.PageSize <= 0 {
		out.PageSize = DefaultPageSize
	}
	if out.PageSize > MaxPageSize {
		out.PageSize = MaxPageSize
	}
	if out.Download == "" {
		out.Download = DownloadAll
	}
	if out.Transcription == "" {
		out.Transcription = StageAll
	}
	if out.OCR == "" {
		out.OCR = StageAll
	}
	if out.TagPresence == "" {
		out.TagPresence = TagsAll
	}
	if out.TagMode == "" {
		out.TagMode = TagModeAnd
	}

	if out.ContentTypes != nil {
		kept := make([]string, 0, len(out.ContentTypes))
		for _, ct := range out.ContentTypes {
			switch strings.ToLower(strings.TrimSpace(ct)) {
			case "video":
				kept = append(kept, "video")
			case "images":
				kept = append(kept, "images")
			}
		}
		out.ContentTypes = dedupe(kept)
	}

	// Filter names go through the same canonicalization as assignment,
	// so the exact string a user just tagged with always matches.
	tags := make([]string, 0, len(out.Tags))
	for _, tag := range out.Tags {
		if name := textutil.NormalizeTag(tag); name != "" {
			tags = append(tags, name)
		}
	}
	out.Tags = dedupe(tags)

	if out.Download == NotDownloaded {
		out.ContentTypes = nil
		out.Transcription = StageAll
		out.OCR = StageAll
		out.TagPresence = TagsAll
		out.tagsInert = true
	}

	return out
}

// TagsApplied reports whether the explicit tag set participates in filtering.
func (s Spec) TagsApplied() bool {
	return !s.tagsInert && len(s.Tags) > 0
}

// Offset returns the row offset for the requested page.
func (s Spec) Offset() int {
	return (s.Page - 1) * s.PageSize
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

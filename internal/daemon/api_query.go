package daemon

import (
	"net/http"
	"strconv"
	"strings"

	"reelvault/internal/query"
)

// specFromQuery maps request parameters onto a query spec. Unknown selector
// values fall back to their neutral default; Normalize handles the rest.
func specFromQuery(r *http.Request, deep bool) query.Spec {
	params := r.URL.Query()
	spec := query.Spec{
		Search:     strings.TrimSpace(params.Get("q")),
		SearchDeep: deep,
	}

	if page, err := strconv.Atoi(params.Get("page")); err == nil {
		spec.Page = page
	}
	if size, err := strconv.Atoi(params.Get("page_size")); err == nil {
		spec.PageSize = size
	}

	switch params.Get("download") {
	case "downloaded":
		spec.Download = query.Downloaded
	case "not_downloaded":
		spec.Download = query.NotDownloaded
	}

	if raw, ok := params["content_type"]; ok {
		spec.ContentTypes = splitValues(raw)
	}

	spec.Transcription = stageSelector(params.Get("transcription"), "transcribed")
	spec.OCR = stageSelector(params.Get("ocr"), "ocr")

	switch params.Get("tagged") {
	case "tagged":
		spec.TagPresence = query.TagsTagged
	case "untagged":
		spec.TagPresence = query.TagsUntagged
	}

	if raw, ok := params["tags"]; ok {
		spec.Tags = splitValues(raw)
	}
	if params.Get("tag_mode") == "or" {
		spec.TagMode = query.TagModeOr
	}

	return spec
}

// stageSelector accepts the generic done/not_done pair and the stage's own
// vocabulary (transcribed/not_transcribed, ocr/not_ocr).
func stageSelector(value, alias string) query.StageSelector {
	switch value {
	case "done", alias:
		return query.StageDone
	case "not_done", "not_" + alias:
		return query.StageNotDone
	default:
		return query.StageAll
	}
}

// splitValues accepts repeated parameters and comma-separated lists.
func splitValues(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

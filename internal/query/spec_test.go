package query_test

import (
	"strings"
	"testing"

	"reelvault/internal/query"
)

func TestNormalizeDefaults(t *testing.T) {
	spec := query.Spec{}.Normalize()
	if spec.Page != 1 || spec.PageSize != query.DefaultPageSize {
		t.Fatalf("unexpected paging defaults: %+v", spec)
	}
	if spec.Download != query.DownloadAll || spec.Transcription != query.StageAll {
		t.Fatalf("unexpected selector defaults: %+v", spec)
	}
	if spec.TagMode != query.TagModeAnd {
		t.Fatalf("expected AND default tag mode, got %q", spec.TagMode)
	}
}

func TestNormalizeClampsPageSize(t *testing.T) {
	spec := query.Spec{Page: -3, PageSize: 10000}.Normalize()
	if spec.Page != 1 {
		t.Fatalf("expected page clamped to 1, got %d", spec.Page)
	}
	if spec.PageSize != query.MaxPageSize {
		t.Fatalf("expected page size capped at %d, got %d", query.MaxPageSize, spec.PageSize)
	}
}

func TestNormalizeNotDownloadedNeutralizesFacets(t *testing.T) {
	spec := query.Spec{
		Download:      query.NotDownloaded,
		ContentTypes:  []string{"video"},
		Transcription: query.StageDone,
		OCR:           query.StageDone,
		TagPresence:   query.TagsTagged,
		Tags:          []string{"cooking"},
	}.Normalize()

	if spec.ContentTypes != nil {
		t.Fatalf("expected content types neutralized, got %#v", spec.ContentTypes)
	}
	if spec.Transcription != query.StageAll || spec.OCR != query.StageAll || spec.TagPresence != query.TagsAll {
		t.Fatalf("expected downstream facets neutral, got %+v", spec)
	}
	// Tag names are preserved but inert.
	if len(spec.Tags) != 1 {
		t.Fatalf("expected tag names preserved, got %#v", spec.Tags)
	}
	if spec.TagsApplied() {
		t.Fatal("expected tags inert under not_downloaded")
	}

	clause, _, empty := spec.Build()
	if empty {
		t.Fatal("not_downloaded must not yield the empty result shortcut")
	}
	if strings.Contains(clause, "item_tags") {
		t.Fatalf("inert tags leaked into clause: %s", clause)
	}
}

func TestBuildEmptyContentSubset(t *testing.T) {
	spec := query.Spec{ContentTypes: []string{}}.Normalize()
	if _, _, empty := spec.Build(); !empty {
		t.Fatal("expected empty content-type subset to short-circuit to zero results")
	}
}

func TestBuildUnknownContentTypeDropped(t *testing.T) {
	spec := query.Spec{ContentTypes: []string{"carousel"}}.Normalize()
	if _, _, empty := spec.Build(); !empty {
		t.Fatal("expected unknown content type to reduce to the empty subset")
	}
}

func TestBuildTagModes(t *testing.T) {
	and := query.Spec{Tags: []string{"x", "y"}, TagMode: query.TagModeAnd}.Normalize()
	clause, args, _ := and.Build()
	if !strings.Contains(clause, "HAVING COUNT(DISTINCT name) = ?") {
		t.Fatalf("AND clause missing superset predicate: %s", clause)
	}
	if args[len(args)-1] != 2 {
		t.Fatalf("expected tag count arg 2, got %v", args[len(args)-1])
	}

	or := query.Spec{Tags: []string{"x", "y"}, TagMode: query.TagModeOr}.Normalize()
	clause, _, _ = or.Build()
	if strings.Contains(clause, "HAVING") {
		t.Fatalf("OR clause must not require the full set: %s", clause)
	}
	if !strings.Contains(clause, "name IN (?, ?)") {
		t.Fatalf("OR clause missing intersection predicate: %s", clause)
	}
}

func TestBuildSearchEscapesWildcards(t *testing.T) {
	spec := query.Spec{Search: "100%"}.Normalize()
	_, args, _ := spec.Build()
	found := false
	for _, arg := range args {
		if s, ok := arg.(string); ok && strings.Contains(s, `\%`) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected escaped wildcard in args: %v", args)
	}
}

func TestBuildDeepSearchCoversDerivedText(t *testing.T) {
	spec := query.Spec{Search: "pasta", SearchDeep: true}.Normalize()
	clause, _, _ := spec.Build()
	if !strings.Contains(clause, "transcription_text LIKE") || !strings.Contains(clause, "ocr_text LIKE") {
		t.Fatalf("deep search missing derived text columns: %s", clause)
	}
}

func TestPaginate(t *testing.T) {
	cases := []struct {
		total, page, size int
		expect            query.Pagination
	}{
		{0, 1, 50, query.Pagination{Page: 1, PageSize: 50, Total: 0, TotalPages: 0}},
		{101, 1, 50, query.Pagination{Page: 1, PageSize: 50, Total: 101, TotalPages: 3, HasNext: true}},
		{101, 3, 50, query.Pagination{Page: 3, PageSize: 50, Total: 101, TotalPages: 3, HasPrev: true}},
		{100, 2, 50, query.Pagination{Page: 2, PageSize: 50, Total: 100, TotalPages: 2, HasPrev: true}},
	}
	for _, tc := range cases {
		if got := query.Paginate(tc.total, tc.page, tc.size); got != tc.expect {
			t.Errorf("Paginate(%d,%d,%d) = %+v, want %+v", tc.total, tc.page, tc.size, got, tc.expect)
		}
	}
}

func TestNormalizeCanonicalizesTagNames(t *testing.T) {
	spec := query.Spec{Tags: []string{"Straße", "  Deep   Dish ", "Café", "strasse"}}.Normalize()
	want := []string{"strasse", "deep dish", "café"}
	if len(spec.Tags) != len(want) {
		t.Fatalf("tags = %q, want %q", spec.Tags, want)
	}
	for i, name := range want {
		if spec.Tags[i] != name {
			t.Fatalf("tags[%d] = %q, want %q", i, spec.Tags[i], name)
		}
	}
}

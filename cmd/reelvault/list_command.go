package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelvault/internal/api"
	"reelvault/internal/logging"
	"reelvault/internal/query"
	"reelvault/internal/tags"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		search        string
		deep          bool
		downloaded    bool
		notDownloaded bool
		contentTypes  []string
		transcription string
		ocr           string
		tagged        bool
		untagged      bool
		tagNames      []string
		anyTag        bool
		page          int
		pageSize      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archive items with faceted filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := query.Spec{
				Search:     search,
				SearchDeep: deep,
				Page:       page,
				PageSize:   pageSize,
				Tags:       tagNames,
			}
			if downloaded && notDownloaded {
				return fmt.Errorf("--downloaded and --not-downloaded are mutually exclusive")
			}
			if downloaded {
				spec.Download = query.Downloaded
			}
			if notDownloaded {
				spec.Download = query.NotDownloaded
			}
			if cmd.Flags().Changed("type") {
				spec.ContentTypes = contentTypes
			}
			var err error
			if spec.Transcription, err = parseStageSelector(transcription, "transcribed"); err != nil {
				return fmt.Errorf("--transcription: %w", err)
			}
			if spec.OCR, err = parseStageSelector(ocr, "ocr"); err != nil {
				return fmt.Errorf("--ocr: %w", err)
			}
			if tagged && untagged {
				return fmt.Errorf("--tagged and --untagged are mutually exclusive")
			}
			if tagged {
				spec.TagPresence = query.TagsTagged
			}
			if untagged {
				spec.TagPresence = query.TagsUntagged
			}
			if anyTag {
				spec.TagMode = query.TagModeOr
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			cfg := ctx.configValue()
			service := api.NewArchiveService(store, tags.NewService(store, logging.NewNop()), cfg.Paths.MediaDir)
			pageView, err := service.Items(cmd.Context(), spec)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if len(pageView.Items) == 0 {
				fmt.Fprintln(stdout, "No items match")
				return nil
			}

			rows := make([][]string, 0, len(pageView.Items))
			for _, item := range pageView.Items {
				rows = append(rows, []string{
					item.ID,
					truncate(item.Title, 48),
					item.ContentType,
					formatExtent(item.ContentType, item.DurationSeconds, item.ImageCount),
					item.FavoritedAt,
					item.DownloadStatus,
					item.TranscriptionStatus,
					item.OCRStatus,
					item.AutotagStatus,
				})
			}
			fmt.Fprintln(stdout, renderTable(
				[]tableColumn{
					{title: "ID"}, {title: "Title"}, {title: "Type"},
					{title: "Extent", numeric: true}, {title: "Favorited"},
					{title: "Download"}, {title: "Transcribe"}, {title: "OCR"}, {title: "Autotag"},
				},
				rows,
			))
			p := pageView.Pagination
			fmt.Fprintf(stdout, "Page %d of %d (%d items total)\n", p.Page, p.TotalPages, p.Total)
			return nil
		},
	}

	cmd.Flags().StringVarP(&search, "search", "q", "", "Search term for title, uploader, and description")
	cmd.Flags().BoolVar(&deep, "deep", false, "Also search transcription and OCR text")
	cmd.Flags().BoolVar(&downloaded, "downloaded", false, "Only items with fetched media")
	cmd.Flags().BoolVar(&notDownloaded, "not-downloaded", false, "Only items without fetched media")
	cmd.Flags().StringSliceVar(&contentTypes, "type", nil, "Content type filter: video, images")
	cmd.Flags().StringVar(&transcription, "transcription", "", "Transcription filter: transcribed, not_transcribed")
	cmd.Flags().StringVar(&ocr, "ocr", "", "OCR filter: ocr, not_ocr")
	cmd.Flags().BoolVar(&tagged, "tagged", false, "Only items carrying at least one tag")
	cmd.Flags().BoolVar(&untagged, "untagged", false, "Only items without tags")
	cmd.Flags().StringSliceVar(&tagNames, "tag", nil, "Require this tag (repeatable; all must match)")
	cmd.Flags().BoolVar(&anyTag, "any-tag", false, "Match items carrying any of the --tag values")
	cmd.Flags().IntVar(&page, "page", 1, "Result page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Items per page")

	return cmd
}

// parseStageSelector accepts done/not_done plus the stage's own vocabulary
// (transcribed/not_transcribed, ocr/not_ocr).
func parseStageSelector(raw, alias string) (query.StageSelector, error) {
	switch raw {
	case "":
		return query.StageAll, nil
	case "done", alias:
		return query.StageDone, nil
	case "not_done", "not_" + alias:
		return query.StageNotDone, nil
	default:
		return query.StageAll, fmt.Errorf("unknown value %q (expected %s or not_%s)", raw, alias, alias)
	}
}

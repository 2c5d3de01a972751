package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"reelvault/internal/api"
	"reelvault/internal/logging"
	"reelvault/internal/tags"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var withText bool

	cmd := &cobra.Command{
		Use:   "show <item-id>",
		Short: "Show one archive item in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			cfg := ctx.configValue()
			service := api.NewArchiveService(store, tags.NewService(store, logging.NewNop()), cfg.Paths.MediaDir)
			item, err := service.Item(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printItemDetail(cmd.OutOrStdout(), item, withText)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withText, "text", false, "Include transcription and OCR text")
	return cmd
}

func printItemDetail(out io.Writer, item api.ItemDetail, withText bool) {
	fmt.Fprintf(out, "ID:          %s\n", item.ID)
	fmt.Fprintf(out, "Title:       %s\n", item.Title)
	fmt.Fprintf(out, "Uploader:    %s", item.Uploader)
	if item.UploaderID != "" {
		fmt.Fprintf(out, " (%s)", item.UploaderID)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Source:      %s\n", item.SourceURL)
	if item.ContentType != "" {
		fmt.Fprintf(out, "Type:        %s %s\n", item.ContentType,
			formatExtent(item.ContentType, item.DurationSeconds, item.ImageCount))
	}
	fmt.Fprintf(out, "Favorited:   %s\n", item.FavoritedAt)
	fmt.Fprintf(out, "Ingested:    %s\n", item.IngestedAt)
	fmt.Fprintf(out, "Stages:      download=%s transcription=%s ocr=%s autotag=%s\n",
		item.DownloadStatus, item.TranscriptionStatus, item.OCRStatus, item.AutotagStatus)
	if item.StageError != "" {
		fmt.Fprintf(out, "Last error:  %s\n", item.StageError)
	}
	if item.SourceGone {
		fmt.Fprintln(out, "Source:      gone (removed upstream)")
	}
	if item.SourcePrivate {
		fmt.Fprintln(out, "Source:      private (inaccessible upstream)")
	}

	if len(item.ManualTags) > 0 {
		fmt.Fprintf(out, "Tags:        %s\n", strings.Join(tagNames(item.ManualTags), ", "))
	}
	if len(item.AutomaticTags) > 0 {
		parts := make([]string, 0, len(item.AutomaticTags))
		for _, tag := range item.AutomaticTags {
			parts = append(parts, fmt.Sprintf("%s (%.2f)", tag.Name, tag.Confidence))
		}
		fmt.Fprintf(out, "Auto tags:   %s\n", strings.Join(parts, ", "))
	}

	if item.Description != "" {
		fmt.Fprintf(out, "\n%s\n", item.Description)
	}
	if withText && item.TranscriptionText != "" {
		fmt.Fprintf(out, "\nTranscription:\n%s\n", item.TranscriptionText)
	}
	if withText && item.OCRText != "" {
		fmt.Fprintf(out, "\nExtracted text:\n%s\n", item.OCRText)
	}
}

func tagNames(views []api.TagView) []string {
	names := make([]string, 0, len(views))
	for _, view := range views {
		names = append(names, view.Name)
	}
	return names
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reelvault/internal/api"
	"reelvault/internal/logging"
	"reelvault/internal/tags"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show archive counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			cfg := ctx.configValue()
			service := api.NewArchiveService(store, tags.NewService(store, logging.NewNop()), cfg.Paths.MediaDir)
			stats, err := service.Stats(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Items", strconv.Itoa(stats.Total)},
				{"Videos", strconv.Itoa(stats.Videos)},
				{"Image posts", strconv.Itoa(stats.Images)},
				{"Downloaded", strconv.Itoa(stats.Downloaded)},
				{"Transcribed", strconv.Itoa(stats.Transcribed)},
				{"Text extracted", strconv.Itoa(stats.OCRd)},
				{"Autotagged", strconv.Itoa(stats.Autotagged)},
				{"Tagged", strconv.Itoa(stats.Tagged)},
				{"Failed", strconv.Itoa(stats.Failed)},
				{"Source gone", strconv.Itoa(stats.SourceGone)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]tableColumn{{title: "Counter"}, {title: "Count", numeric: true}},
				rows,
			))
			return nil
		},
	}
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"reelvault/internal/ingest"
	"reelvault/internal/logging"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var links []string

	cmd := &cobra.Command{
		Use:   "ingest [export-file]",
		Short: "Ingest a platform export file or individual share links",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(links) == 0 {
				return fmt.Errorf("provide an export file or at least one --link")
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			service := ingest.NewService(store, logging.NewNop())
			var outcomes []ingest.Outcome

			if len(args) == 1 {
				records, err := readExport(args[0])
				if err != nil {
					return err
				}
				outcomes, err = service.Batch(cmd.Context(), records)
				if err != nil {
					return err
				}
			}
			if len(links) > 0 {
				linkOutcomes, err := service.Links(cmd.Context(), links)
				if err != nil {
					return err
				}
				outcomes = append(outcomes, linkOutcomes...)
			}

			printOutcomes(cmd.OutOrStdout(), outcomes)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&links, "link", nil, "Share link to ingest (repeatable)")
	return cmd
}

func readExport(path string) ([]ingest.Record, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open export file: %w", err)
		}
		defer file.Close()
		reader = file
	}
	return ingest.ParseExport(reader)
}

func printOutcomes(out io.Writer, outcomes []ingest.Outcome) {
	inserted, skipped, invalid := 0, 0, 0
	for _, outcome := range outcomes {
		switch outcome.Status {
		case ingest.OutcomeInserted:
			inserted++
		case ingest.OutcomeSkipped:
			skipped++
		case ingest.OutcomeInvalid:
			invalid++
			fmt.Fprintf(out, "invalid: %s (%s)\n", outcome.Link, outcome.Reason)
		}
	}
	fmt.Fprintf(out, "Ingested %d new, %d already present, %d invalid\n", inserted, skipped, invalid)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelvault/internal/archive"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue [stage]",
		Short: "Dispatch eligible items for processing",
		Long:  "Asks the running daemon to queue eligible items. With no stage, every stage is enqueued.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			stages := archive.Stages
			if len(args) == 1 {
				stage, err := archive.ParseStage(args[0])
				if err != nil {
					return err
				}
				stages = []archive.Stage{stage}
			}

			stdout := cmd.OutOrStdout()
			total := 0
			for _, stage := range stages {
				queued, err := client.Enqueue(cmd.Context(), string(stage))
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "%-15s %d queued\n", stage, queued)
				total += queued
			}
			if len(stages) > 1 {
				fmt.Fprintf(stdout, "Total: %d queued\n", total)
			}
			return nil
		},
	}
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reclaim stale processing claims",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			reclaimed, err := client.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reclaimed %d stale claims\n", reclaimed)
			return nil
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <stage> [item-id...]",
		Short: "Reset failed items back to pending",
		Long:  "Resets failed items for one stage. With no item ids, every failed item for the stage is reset.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := archive.ParseStage(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			retried, err := client.Retry(cmd.Context(), string(stage), args[1:])
			if err != nil {
				return err
			}
			if len(args) > 1 {
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d of %d items for %s\n", retried, len(args)-1, stage)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d failed items for %s\n", retried, stage)
			}
			return nil
		},
	}
}

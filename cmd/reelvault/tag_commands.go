package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reelvault/internal/archive"
	"reelvault/internal/logging"
	"reelvault/internal/tags"
)

func newTagCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all tags with assignment counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			service := tags.NewService(store, logging.NewNop())
			counts, err := service.List(cmd.Context())
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if len(counts) == 0 {
				fmt.Fprintln(stdout, "No tags assigned")
				return nil
			}
			rows := make([][]string, 0, len(counts))
			for _, count := range counts {
				rows = append(rows, []string{
					count.Name,
					strconv.Itoa(count.Manual),
					strconv.Itoa(count.Automatic),
					strconv.Itoa(count.Total()),
				})
			}
			fmt.Fprintln(stdout, renderTable(
				[]tableColumn{
					{title: "Tag"},
					{title: "Manual", numeric: true},
					{title: "Automatic", numeric: true},
					{title: "Total", numeric: true},
				},
				rows,
			))
			return nil
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <item-id> <tag>",
		Short: "Assign a tag to an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			service := tags.NewService(store, logging.NewNop())
			assigned, err := service.Assign(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if assigned {
				fmt.Fprintln(cmd.OutOrStdout(), "Tag assigned")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Tag was already assigned")
			}
			return nil
		},
	}

	var removeAuto bool
	removeCmd := &cobra.Command{
		Use:   "remove <item-id> <tag>",
		Short: "Remove a tag from an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			origin := archive.TagOriginManual
			if removeAuto {
				origin = archive.TagOriginAutomatic
			}
			service := tags.NewService(store, logging.NewNop())
			removed, err := service.Unassign(cmd.Context(), args[0], args[1], origin)
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintln(cmd.OutOrStdout(), "Tag removed")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Tag was not assigned")
			}
			return nil
		},
	}
	removeCmd.Flags().BoolVar(&removeAuto, "automatic", false, "Remove the automatic assignment instead of the manual one")

	cmd.AddCommand(listCmd, addCmd, removeCmd)
	return cmd
}

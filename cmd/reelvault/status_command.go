package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reelvault/internal/apiclient"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and stage health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			status, err := client.Status(cmd.Context())
			if err != nil {
				if errors.Is(err, apiclient.ErrDaemonUnreachable) {
					fmt.Fprintln(stdout, "Daemon is not running")
					return nil
				}
				return err
			}

			colorize := shouldColorize(stdout)
			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintf(stdout, "  Running:  %s (pid %d)\n", yesNo(status.Running), status.PID)
			fmt.Fprintf(stdout, "  Archive:  %s\n", status.ArchivePath)
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Stages", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if len(status.Stages) == 0 {
				fmt.Fprintln(stdout, "  no stages registered")
				return nil
			}
			for _, st := range status.Stages {
				fmt.Fprintln(stdout, renderHealthLine(st.Stage, st.Ready, st.Detail, colorize))
			}
			return nil
		},
	}
}

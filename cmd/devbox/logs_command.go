package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"devbox/internal/ipc"
)

func newDaemonLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		followFlag bool
		linesFlag  int
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: linesFlag})
				if err != nil {
					return err
				}
				for _, line := range resp.Lines {
					fmt.Fprintln(stdout, line)
				}
				if !followFlag {
					return nil
				}

				offset := resp.Offset
				for {
					next, err := client.LogTail(ipc.LogTailRequest{
						Offset:     offset,
						Follow:     true,
						WaitMillis: 1000,
					})
					if err != nil {
						return err
					}
					for _, line := range next.Lines {
						fmt.Fprintln(stdout, line)
					}
					offset = next.Offset
					select {
					case <-cmd.Context().Done():
						return nil
					default:
					}
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&followFlag, "follow", "f", false, "Keep streaming new log lines")
	cmd.Flags().IntVarP(&linesFlag, "lines", "n", 50, "Number of trailing lines to show")
	return cmd
}

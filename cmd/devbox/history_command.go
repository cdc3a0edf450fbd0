package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"devbox/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		workspaceFlag string
		limitFlag     int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent command runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipc.HistoryRequest{WorkspaceID: workspaceFlag, Limit: limitFlag}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(req)
				if err != nil {
					return err
				}
				out := ctx.renderer()
				if out.JSON() {
					return out.Result(resp)
				}

				stdout := cmd.OutOrStdout()
				if len(resp.Runs) == 0 {
					fmt.Fprintln(stdout, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(resp.Runs))
				for _, run := range resp.Runs {
					rows = append(rows, []string{
						run.StartedAt.Local().Format("2006-01-02 15:04:05"),
						run.WorkspaceID,
						run.Command,
						fmt.Sprintf("%d", run.ExitCode),
						(time.Duration(run.DurationMillis) * time.Millisecond).String(),
						yesNo(run.Synced),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Started", "Workspace", "Command", "Exit", "Duration", "Synced"},
					rows,
					3, 4,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&workspaceFlag, "workspace", "w", "", "Only show runs for this workspace")
	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 0, "Maximum rows to show (default 50)")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"devbox/internal/ipc"
)

func newWorkspaceCommand(ctx *commandContext) *cobra.Command {
	workspaceCmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage registered workspaces",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Workspaces()
				if err != nil {
					return err
				}
				out := ctx.renderer()
				if out.JSON() {
					return out.Result(resp)
				}

				stdout := cmd.OutOrStdout()
				if len(resp.Workspaces) == 0 {
					fmt.Fprintln(stdout, "No workspaces registered")
					return nil
				}
				rows := make([][]string, 0, len(resp.Workspaces))
				for _, ws := range resp.Workspaces {
					rows = append(rows, []string{
						ws.ID,
						ws.Path,
						ws.Status,
						ws.RegisteredAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Path", "Status", "Registered"},
					rows,
				))
				return nil
			})
		},
	}

	var envFlags []string
	registerCmd := &cobra.Command{
		Use:   "register <id> <path>",
		Short: "Register or re-register a workspace root",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := parseEnvFlags(envFlags)
			if err != nil {
				return err
			}
			req := ipc.RegisterWorkspaceRequest{ID: args[0], Path: args[1], Env: env}
			return ctx.withRunningClient(func(client *ipc.Client) error {
				resp, err := client.RegisterWorkspace(req)
				if err != nil {
					return err
				}
				out := ctx.renderer()
				if out.JSON() {
					return out.Result(resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered workspace %s at %s\n",
					resp.Workspace.ID, resp.Workspace.Path)
				return nil
			})
		},
	}
	registerCmd.Flags().StringArrayVarP(&envFlags, "env", "e", nil, "Workspace default environment entry KEY=VALUE (repeatable)")

	workspaceCmd.AddCommand(listCmd, registerCmd)
	return workspaceCmd
}

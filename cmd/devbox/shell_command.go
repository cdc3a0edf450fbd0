package main

import (
	"errors"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"devbox/internal/ipc"
)

func newShellCommand(ctx *commandContext) *cobra.Command {
	var (
		workspaceFlag string
		envFlags      []string
		pureFlag      bool
	)

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive shell in a workspace",
		Long: `Open an interactive shell in a workspace. The daemon resolves the
interpreter, environment, and working directory; the shell itself runs
locally so stdin stays attached to the terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := parseEnvFlags(envFlags)
			if err != nil {
				return err
			}

			req := ipc.ShellRequest{
				WorkspaceID: workspaceFlag,
				Env:         env,
				Pure:        pureFlag,
			}
			if req.WorkspaceID == "" {
				req.WorkspacePath = mustGetwd()
			}

			var session *ipc.ShellResponse
			if err := ctx.withRunningClient(func(client *ipc.Client) error {
				resp, err := client.Shell(req)
				if err != nil {
					return err
				}
				session = resp
				return nil
			}); err != nil {
				return err
			}

			shell := exec.Command(session.Shell)
			shell.Dir = session.Dir
			shell.Env = session.Env
			shell.Stdin = os.Stdin
			shell.Stdout = os.Stdout
			shell.Stderr = os.Stderr

			if err := shell.Run(); err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					ctx.exitCode = exitErr.ExitCode()
					return nil
				}
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace id (default: workspace containing the current directory)")
	cmd.Flags().StringArrayVarP(&envFlags, "env", "e", nil, "Extra environment entry KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&pureFlag, "pure", false, "Start from a minimal environment instead of inheriting the daemon's")

	return cmd
}

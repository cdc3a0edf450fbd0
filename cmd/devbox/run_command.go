package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"devbox/internal/errs"
	"devbox/internal/ipc"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		workspaceFlag string
		cwdFlag       string
		envFlags      []string
		timeoutFlag   time.Duration
		noSyncFlag    bool
	)

	cmd := &cobra.Command{
		Use:   "run -- <command> [args...]",
		Short: "Run a command inside a workspace",
		Long: `Run a command inside a workspace. The daemon waits for the workspace's
file-sync barrier before executing; the process exit code mirrors the
command's exit code.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := strings.TrimSpace(strings.Join(args, " "))
			if command == "" {
				return errs.NewUsageError("no command specified")
			}
			env, err := parseEnvFlags(envFlags)
			if err != nil {
				return err
			}

			req := ipc.RunRequest{
				WorkspaceID:   workspaceFlag,
				Command:       command,
				Cwd:           cwdFlag,
				Env:           env,
				TimeoutMillis: timeoutFlag.Milliseconds(),
				NoSync:        noSyncFlag,
			}
			if req.WorkspaceID == "" {
				req.WorkspacePath = mustGetwd()
			}

			return ctx.withRunningClient(func(client *ipc.Client) error {
				resp, err := client.Run(req)
				if err != nil {
					return err
				}
				return renderRun(ctx, resp)
			})
		},
	}

	cmd.Flags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace id (default: workspace containing the current directory)")
	cmd.Flags().StringVar(&cwdFlag, "cwd", "", "Working directory, relative to the workspace root")
	cmd.Flags().StringArrayVarP(&envFlags, "env", "e", nil, "Extra environment entry KEY=VALUE (repeatable)")
	cmd.Flags().DurationVar(&timeoutFlag, "timeout", 0, "Abort the command after this duration")
	cmd.Flags().BoolVar(&noSyncFlag, "no-sync", false, "Skip the file-sync barrier")

	return cmd
}

// renderRun emits a completed run and mirrors its exit code into the process
// exit status.
func renderRun(ctx *commandContext, resp *ipc.RunResponse) error {
	out := ctx.renderer()
	ctx.exitCode = resp.ExitCode

	if out.JSON() {
		return out.Result(resp)
	}

	if !resp.Synced {
		fmt.Fprintf(os.Stderr, "warning: sync wait timed out after %dms, ran unsynced\n", resp.SyncWaitMillis)
	}
	if resp.Stdout != "" {
		out.Printf("%s", resp.Stdout)
	}
	if resp.Stderr != "" {
		fmt.Fprint(os.Stderr, resp.Stderr)
	}
	return nil
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

package main

import (
	"time"

	"github.com/spf13/cobra"

	"devbox/internal/ipc"
)

func newTestCommand(ctx *commandContext) *cobra.Command {
	var (
		workspaceFlag string
		runnerFlag    string
		watchFlag     bool
		coverageFlag  bool
		envFlags      []string
		timeoutFlag   time.Duration
		noSyncFlag    bool
	)

	cmd := &cobra.Command{
		Use:   "test [pattern]",
		Short: "Run a workspace's test suite",
		Long: `Run a workspace's test suite. The test tool is detected from the project
(vitest, jest, mocha, pytest, go, cargo, npm) unless --runner overrides it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}
			env, err := parseEnvFlags(envFlags)
			if err != nil {
				return err
			}

			req := ipc.TestRequest{
				WorkspaceID:   workspaceFlag,
				Runner:        runnerFlag,
				Pattern:       pattern,
				Watch:         watchFlag,
				Coverage:      coverageFlag,
				Env:           env,
				TimeoutMillis: timeoutFlag.Milliseconds(),
				NoSync:        noSyncFlag,
			}
			if req.WorkspaceID == "" {
				req.WorkspacePath = mustGetwd()
			}

			return ctx.withRunningClient(func(client *ipc.Client) error {
				resp, err := client.Test(req)
				if err != nil {
					return err
				}
				out := ctx.renderer()
				if out.JSON() {
					ctx.exitCode = resp.ExitCode
					return out.Result(resp)
				}
				out.Printf("$ %s\n", resp.Command)
				return renderRun(ctx, &resp.RunResponse)
			})
		},
	}

	cmd.Flags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace id (default: workspace containing the current directory)")
	cmd.Flags().StringVar(&runnerFlag, "runner", "", "Test runner override (vitest, jest, mocha, pytest, go, cargo, npm)")
	cmd.Flags().BoolVar(&watchFlag, "watch", false, "Run the test tool in watch mode")
	cmd.Flags().BoolVar(&coverageFlag, "coverage", false, "Collect coverage")
	cmd.Flags().StringArrayVarP(&envFlags, "env", "e", nil, "Extra environment entry KEY=VALUE (repeatable)")
	cmd.Flags().DurationVar(&timeoutFlag, "timeout", 0, "Abort the test run after this duration")
	cmd.Flags().BoolVar(&noSyncFlag, "no-sync", false, "Skip the file-sync barrier")

	return cmd
}

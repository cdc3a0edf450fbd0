package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"devbox/internal/daemonctl"
	"devbox/internal/ipc"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the devbox daemon",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the devbox daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(cfg, ctx.launchOptions(), 10*time.Second)
			if err != nil {
				return err
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the devbox daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			result, err := daemonctl.StopAndTerminate(cfg, 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon did not stop gracefully, killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the devbox daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(cfg, ctx.launchOptions(), 5*time.Second, 10*time.Second)
			if err != nil {
				return err
			}
			if result.WasRunning {
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.Start.PID)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and health checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ctx.renderer()
			stdout := cmd.OutOrStdout()

			client, err := ctx.dialClient()
			if err != nil {
				if out.JSON() {
					return out.Result(ipc.StatusResponse{Running: false})
				}
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			defer client.Close()

			status, err := client.Status()
			if err != nil {
				return err
			}
			if out.JSON() {
				return out.Result(status)
			}

			colorize := shouldColorize(stdout)
			fmt.Fprintln(stdout, renderSectionHeader("Daemon", colorize))
			fmt.Fprintln(stdout, renderStatusLine("Running", statusOK, fmt.Sprintf("pid %d", status.PID), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, status.SocketPath, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Uptime", statusInfo, time.Since(status.StartedAt).Round(time.Second).String(), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Workspaces", statusInfo, fmt.Sprintf("%d registered", status.WorkspaceCount), colorize))
			fmt.Fprintln(stdout)

			fmt.Fprintln(stdout, renderSectionHeader("Health", colorize))
			if len(status.Checks) == 0 {
				fmt.Fprintln(stdout, "No health checks have run yet")
				return nil
			}
			for _, check := range status.Checks {
				kind := statusOK
				detail := "healthy"
				if !check.Healthy {
					kind = statusError
					detail = check.Detail
				}
				fmt.Fprintln(stdout, renderStatusLine(check.Name, kind, detail, colorize))
			}
			return nil
		},
	}

	daemonCmd.AddCommand(startCmd, stopCmd, restartCmd, statusCmd, newDaemonRunCommand(ctx), newDaemonLogsCommand(ctx))
	return daemonCmd
}

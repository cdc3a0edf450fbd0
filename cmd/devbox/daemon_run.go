package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"devbox/internal/daemon"
	"devbox/internal/ipc"
	"devbox/internal/logging"
)

// newDaemonRunCommand runs the daemon in the foreground. Same composition as
// devboxd, but attached to the terminal for debugging.
func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, closeLog, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sup, err := daemon.New(cfg, logger)
			if err != nil {
				return err
			}
			defer sup.Close()

			var server *ipc.Server
			err = sup.Start(signalCtx, func(ctx context.Context) (func() error, error) {
				var bindErr error
				server, bindErr = ipc.NewServer(ctx, cfg.SocketPath(), sup, logger)
				if bindErr != nil {
					return nil, bindErr
				}
				return server.Close, nil
			})
			if err != nil {
				return err
			}
			sup.RegisterShutdownCallback(closeLog)
			server.Serve()

			<-sup.Done()
			return nil
		},
	}
}

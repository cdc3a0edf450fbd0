// Command devboxd is the devbox workspace daemon. It owns the workspace
// registry, the sync barriers, command execution, and the control socket the
// devbox CLI talks to.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"devbox/internal/config"
	"devbox/internal/daemon"
	"devbox/internal/ipc"
	"devbox/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, closeLog, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	sup, err := daemon.New(cfg, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer sup.Close()

	var server *ipc.Server
	err = sup.Start(ctx, func(ctx context.Context) (func() error, error) {
		var bindErr error
		server, bindErr = ipc.NewServer(ctx, cfg.SocketPath(), sup, logger)
		if bindErr != nil {
			return nil, bindErr
		}
		return server.Close, nil
	})
	if err != nil {
		log.Fatalf("start daemon: %v", err)
	}
	sup.RegisterShutdownCallback(closeLog)
	server.Serve()

	<-sup.Done()
	logger.Info("devboxd shutting down")
}

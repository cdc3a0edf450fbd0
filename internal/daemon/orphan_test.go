package daemon_test

import (
	"context"
	"net"
	"os"
	"testing"

	"devbox/internal/config"
	"devbox/internal/daemon"
	"devbox/internal/testsupport"
)

type deadProbe struct{}

func (deadProbe) Alive(int) bool { return false }

type aliveProbe struct{}

func (aliveProbe) Alive(int) bool { return true }

func newReconcilerFixture(t *testing.T) (*daemon.Supervisor, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	sup, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(sup.Close)
	return sup, cfg
}

func TestStartWithNoArtifacts(t *testing.T) {
	sup, _ := newReconcilerFixture(t)
	if err := sup.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start on clean home: %v", err)
	}
}

func TestStartRemovesUnparseablePIDFile(t *testing.T) {
	sup, cfg := newReconcilerFixture(t)
	if err := os.WriteFile(cfg.PIDFilePath(), []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	if err := sup.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start with garbage pid file: %v", err)
	}
	data, err := os.ReadFile(cfg.PIDFilePath())
	if err != nil {
		t.Fatalf("read pid file after start: %v", err)
	}
	if string(data) == "not-a-pid\n" {
		t.Fatal("stale pid file content survived startup")
	}
}

func TestStartRemovesDeadPIDFile(t *testing.T) {
	sup, cfg := newReconcilerFixture(t)
	sup.SetProcessProbe(deadProbe{})
	if err := os.WriteFile(cfg.PIDFilePath(), []byte("12345\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	if err := sup.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start with dead pid: %v", err)
	}
}

func TestStartFailsWhenPIDAlive(t *testing.T) {
	sup, cfg := newReconcilerFixture(t)
	sup.SetProcessProbe(aliveProbe{})
	if err := os.WriteFile(cfg.PIDFilePath(), []byte("12345\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	if err := sup.Start(context.Background(), nil); err == nil {
		t.Fatal("expected startup failure with live pid")
	}
}

func TestSignalProbeTreatsHugePIDAsDead(t *testing.T) {
	sup, cfg := newReconcilerFixture(t)
	// PID 999999999 exceeds any real pid space, so the default probe reports
	// it dead and startup reclaims the file.
	if err := os.WriteFile(cfg.PIDFilePath(), []byte("999999999\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	if err := sup.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start with pid 999999999: %v", err)
	}
}

func TestStartRemovesNonSocketFile(t *testing.T) {
	sup, cfg := newReconcilerFixture(t)
	if err := os.WriteFile(cfg.SocketPath(), []byte("junk"), 0o644); err != nil {
		t.Fatalf("write fake socket: %v", err)
	}

	if err := sup.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start with non-socket file: %v", err)
	}
	if _, err := os.Stat(cfg.SocketPath()); !os.IsNotExist(err) {
		t.Fatal("non-socket file at socket path survived startup")
	}
}

func TestStartRemovesDeadSocket(t *testing.T) {
	sup, cfg := newReconcilerFixture(t)

	listener, err := net.Listen("unix", cfg.SocketPath())
	if err != nil {
		t.Fatalf("bind socket: %v", err)
	}
	// Closing the listener leaves the socket file behind with nobody
	// accepting, which is exactly the stale case.
	listener.(*net.UnixListener).SetUnlinkOnClose(false)
	_ = listener.Close()
	if _, err := os.Stat(cfg.SocketPath()); err != nil {
		t.Skipf("platform unlinked socket on close: %v", err)
	}

	if err := sup.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start with dead socket: %v", err)
	}
	if _, err := os.Stat(cfg.SocketPath()); !os.IsNotExist(err) {
		t.Fatal("dead socket survived startup")
	}
}

func TestStartFailsWhenSocketLive(t *testing.T) {
	sup, cfg := newReconcilerFixture(t)

	listener, err := net.Listen("unix", cfg.SocketPath())
	if err != nil {
		t.Fatalf("bind socket: %v", err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	if err := sup.Start(context.Background(), nil); err == nil {
		t.Fatal("expected startup failure with live socket")
	}
}

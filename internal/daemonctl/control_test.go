package daemonctl_test

import (
	"os"
	"testing"
	"time"

	"devbox/internal/daemonctl"
	"devbox/internal/testsupport"
)

func TestProcessInfoNoDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	alive, pid, err := daemonctl.ProcessInfo(cfg.SocketPath())
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if alive || pid != 0 {
		t.Fatalf("alive=%v pid=%d on empty home", alive, pid)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := daemonctl.StopAndTerminate(cfg, time.Second)
	if err != daemonctl.ErrDaemonNotRunning {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestWaitForClientTimesOut(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	start := time.Now()
	_, err := daemonctl.WaitForClient(cfg.SocketPath(), 300*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("wait overshot its deadline")
	}
}

func TestReadPIDFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}

	pid, err := daemonctl.ReadPIDFile(cfg.PIDFilePath())
	if err != nil || pid != 0 {
		t.Fatalf("missing pid file: pid=%d err=%v", pid, err)
	}

	if err := os.WriteFile(cfg.PIDFilePath(), []byte("4242\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	pid, err = daemonctl.ReadPIDFile(cfg.PIDFilePath())
	if err != nil {
		t.Fatalf("ReadPIDFile: %v", err)
	}
	if pid != 4242 {
		t.Fatalf("pid %d, want 4242", pid)
	}

	if err := os.WriteFile(cfg.PIDFilePath(), []byte("junk"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	if _, err := daemonctl.ReadPIDFile(cfg.PIDFilePath()); err == nil {
		t.Fatal("expected error for unparseable pid file")
	}
}

func TestLaunchRequiresExecutablePath(t *testing.T) {
	if err := daemonctl.Launch("  ", daemonctl.LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable path")
	}
}

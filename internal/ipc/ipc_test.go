package ipc_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"devbox/internal/config"
	"devbox/internal/daemon"
	"devbox/internal/ipc"
	"devbox/internal/testsupport"
)

func startServer(t *testing.T) (*ipc.Client, *daemon.Supervisor, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)

	sup, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(sup.Close)

	var server *ipc.Server
	err = sup.Start(context.Background(), func(ctx context.Context) (func() error, error) {
		var bindErr error
		server, bindErr = ipc.NewServer(ctx, cfg.SocketPath(), sup, nil)
		if bindErr != nil {
			return nil, bindErr
		}
		return server.Close, nil
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	server.Serve()

	client, err := ipc.Dial(cfg.SocketPath())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, sup, cfg
}

func TestSocketCheckHealthyFromFirstPass(t *testing.T) {
	_, sup, _ := startServer(t)

	// The health loop starts after the socket is bound, so the first cached
	// socket status must already be healthy.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if status := sup.Health().GetStatus("socket"); status != nil {
			if !status.Healthy {
				t.Fatalf("socket check unhealthy on a fresh start: %+v", status)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("socket check never ran")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStatusRoundTrip(t *testing.T) {
	client, _, cfg := startServer(t)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if status.SocketPath != cfg.SocketPath() {
		t.Fatalf("socket path %q", status.SocketPath)
	}
}

func TestRegisterRunAndHistory(t *testing.T) {
	client, _, _ := startServer(t)

	wsPath := t.TempDir()
	reg, err := client.RegisterWorkspace(ipc.RegisterWorkspaceRequest{ID: "web", Path: wsPath})
	if err != nil {
		t.Fatalf("RegisterWorkspace: %v", err)
	}
	if reg.Workspace.ID != "web" || reg.Workspace.Path != wsPath {
		t.Fatalf("registered %+v", reg.Workspace)
	}

	if _, err := client.SyncComplete("web"); err != nil {
		t.Fatalf("SyncComplete: %v", err)
	}

	run, err := client.Run(ipc.RunRequest{WorkspaceID: "web", Command: "echo over-the-wire"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.ExitCode != 0 || !strings.Contains(run.Stdout, "over-the-wire") {
		t.Fatalf("run response %+v", run)
	}
	if !run.Synced {
		t.Fatal("expected synced run after SyncComplete")
	}
	if run.RunID == "" {
		t.Fatal("expected run id")
	}

	history, err := client.History(ipc.HistoryRequest{WorkspaceID: "web"})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history.Runs) != 1 || history.Runs[0].Command != "echo over-the-wire" {
		t.Fatalf("history %+v", history.Runs)
	}
}

func TestRunNoSyncReportsUnsynced(t *testing.T) {
	client, _, _ := startServer(t)

	if _, err := client.RegisterWorkspace(ipc.RegisterWorkspaceRequest{ID: "web", Path: t.TempDir()}); err != nil {
		t.Fatalf("RegisterWorkspace: %v", err)
	}
	if _, err := client.SyncComplete("web"); err != nil {
		t.Fatalf("SyncComplete: %v", err)
	}

	run, err := client.Run(ipc.RunRequest{WorkspaceID: "web", Command: "true", NoSync: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Synced {
		t.Fatal("no-sync run must report synced=false over the wire")
	}
	if run.SyncWaitMillis != 0 {
		t.Fatalf("sync wait %dms, want 0", run.SyncWaitMillis)
	}
}

func TestRunNonZeroExitIsResponseNotError(t *testing.T) {
	client, _, _ := startServer(t)

	if _, err := client.RegisterWorkspace(ipc.RegisterWorkspaceRequest{ID: "web", Path: t.TempDir()}); err != nil {
		t.Fatalf("RegisterWorkspace: %v", err)
	}
	if _, err := client.SyncComplete("web"); err != nil {
		t.Fatalf("SyncComplete: %v", err)
	}

	run, err := client.Run(ipc.RunRequest{WorkspaceID: "web", Command: "exit 7"})
	if err != nil {
		t.Fatalf("non-zero exit must not be an RPC error: %v", err)
	}
	if run.ExitCode != 7 {
		t.Fatalf("exit code %d, want 7", run.ExitCode)
	}
}

func TestRunUnknownWorkspaceError(t *testing.T) {
	client, _, _ := startServer(t)

	_, err := client.Run(ipc.RunRequest{WorkspaceID: "ghost", Command: "true"})
	if err == nil {
		t.Fatal("expected error for unknown workspace")
	}
	if !strings.Contains(err.Error(), "workspace not found") {
		t.Fatalf("error %q should carry the workspace-not-found phrasing", err)
	}
}

func TestShellResolution(t *testing.T) {
	client, _, cfg := startServer(t)

	wsPath := t.TempDir()
	if _, err := client.RegisterWorkspace(ipc.RegisterWorkspaceRequest{
		ID: "web", Path: wsPath, Env: map[string]string{"WS": "1"},
	}); err != nil {
		t.Fatalf("RegisterWorkspace: %v", err)
	}

	shell, err := client.Shell(ipc.ShellRequest{WorkspaceID: "web"})
	if err != nil {
		t.Fatalf("Shell: %v", err)
	}
	if shell.Shell != cfg.Run.Shell {
		t.Fatalf("shell %q", shell.Shell)
	}
	if shell.Dir != wsPath {
		t.Fatalf("dir %q", shell.Dir)
	}
	var found bool
	for _, kv := range shell.Env {
		if kv == "WS=1" {
			found = true
		}
	}
	if !found {
		t.Fatal("workspace env missing from session")
	}
}

func TestWorkspacesListing(t *testing.T) {
	client, _, _ := startServer(t)

	for _, id := range []string{"beta", "alpha"} {
		if _, err := client.RegisterWorkspace(ipc.RegisterWorkspaceRequest{ID: id, Path: t.TempDir()}); err != nil {
			t.Fatalf("RegisterWorkspace(%s): %v", id, err)
		}
	}

	list, err := client.Workspaces()
	if err != nil {
		t.Fatalf("Workspaces: %v", err)
	}
	if len(list.Workspaces) != 2 {
		t.Fatalf("%d workspaces, want 2", len(list.Workspaces))
	}
	if list.Workspaces[0].ID != "alpha" || list.Workspaces[1].ID != "beta" {
		t.Fatalf("listing not sorted: %+v", list.Workspaces)
	}
}

func TestShutdownCancelsSupervisor(t *testing.T) {
	client, sup, _ := startServer(t)

	resp, err := client.Shutdown()
	if err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !resp.Stopping {
		t.Fatal("expected stopping acknowledgement")
	}
	select {
	case <-sup.Done():
	default:
		t.Fatal("supervisor not cancelled after Shutdown")
	}
}

func TestTestCommandOverWire(t *testing.T) {
	client, _, _ := startServer(t)

	wsPath := t.TempDir()
	if _, err := client.RegisterWorkspace(ipc.RegisterWorkspaceRequest{ID: "web", Path: wsPath}); err != nil {
		t.Fatalf("RegisterWorkspace: %v", err)
	}
	if _, err := client.SyncComplete("web"); err != nil {
		t.Fatalf("SyncComplete: %v", err)
	}

	// The built command runs through sh, so a missing tool surfaces as exit
	// code 127 rather than an RPC error.
	resp, err := client.Test(ipc.TestRequest{WorkspaceID: "web", Runner: "go", Pattern: "TestNothing"})
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.Runner != "go" {
		t.Fatalf("runner %q", resp.Runner)
	}
	if resp.Command != "go test -run TestNothing ./..." {
		t.Fatalf("command %q", resp.Command)
	}
}

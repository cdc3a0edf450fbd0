package health_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"devbox/internal/health"
	"devbox/internal/testsupport"
	"devbox/internal/workspace"
)

func staticCheck(name string, healthy bool) health.Checker {
	return health.CheckFunc{
		CheckName: name,
		Fn: func(ctx context.Context) health.Status {
			return health.Status{Healthy: healthy}
		},
	}
}

func TestGetStatusBeforeFirstRunIsNil(t *testing.T) {
	m := health.NewManager(testsupport.NewConfig(t), nil)
	m.Register(staticCheck("socket", true))

	if status := m.GetStatus("socket"); status != nil {
		t.Fatalf("expected nil before first pass, got %+v", status)
	}
}

func TestRunOnceRecordsStatuses(t *testing.T) {
	m := health.NewManager(testsupport.NewConfig(t), nil)
	m.Register(staticCheck("socket", true))
	m.Register(staticCheck("store", false))

	m.RunOnce(context.Background())

	status := m.GetStatus("socket")
	if status == nil || !status.Healthy {
		t.Fatalf("socket status %+v", status)
	}
	if status.CheckedAt.IsZero() {
		t.Fatal("expected CheckedAt to be stamped")
	}
	if m.Healthy() {
		t.Fatal("expected overall unhealthy with one failing check")
	}

	all := m.GetAllStatuses()
	if len(all) != 2 {
		t.Fatalf("got %d statuses, want 2", len(all))
	}
	if all[0].Name != "socket" || all[1].Name != "store" {
		t.Fatalf("statuses not sorted by name: %+v", all)
	}
}

func TestRegisterReplacesByName(t *testing.T) {
	m := health.NewManager(testsupport.NewConfig(t), nil)
	m.Register(staticCheck("socket", false))
	m.Register(staticCheck("socket", true))

	m.RunOnce(context.Background())
	status := m.GetStatus("socket")
	if status == nil || !status.Healthy {
		t.Fatalf("expected replacement checker to win, got %+v", status)
	}
	if len(m.GetAllStatuses()) != 1 {
		t.Fatal("expected a single status entry after replacement")
	}
}

func TestSlowCheckReportedUnhealthy(t *testing.T) {
	m := health.NewManager(testsupport.NewConfig(t), nil)
	m.Register(health.CheckFunc{
		CheckName: "slow",
		Fn: func(ctx context.Context) health.Status {
			select {
			case <-ctx.Done():
			case <-time.After(10 * time.Second):
			}
			return health.Status{Healthy: true}
		},
	})

	start := time.Now()
	m.RunOnce(context.Background())
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("check pass took %v, per-check timeout not applied", elapsed)
	}

	status := m.GetStatus("slow")
	if status == nil || status.Healthy {
		t.Fatalf("expected timed-out check to be unhealthy, got %+v", status)
	}
}

func TestStatusCopiesAreIndependent(t *testing.T) {
	m := health.NewManager(testsupport.NewConfig(t), nil)
	m.Register(staticCheck("socket", true))
	m.RunOnce(context.Background())

	first := m.GetStatus("socket")
	first.Healthy = false
	first.Detail = "mutated"

	second := m.GetStatus("socket")
	if !second.Healthy || second.Detail != "" {
		t.Fatalf("cached status mutated through returned copy: %+v", second)
	}
}

func TestRunLoopStopsOnCancel(t *testing.T) {
	m := health.NewManager(testsupport.NewConfig(t), nil)
	m.Register(staticCheck("socket", true))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if m.GetStatus("socket") == nil {
		t.Fatal("expected immediate first pass before the ticker")
	}
}

func TestBuiltinChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}

	home := health.HomeWritableCheck(cfg)
	if status := home.Check(context.Background()); !status.Healthy {
		t.Fatalf("home check on fresh home: %+v", status)
	}

	socket := health.SocketCheck(cfg)
	if status := socket.Check(context.Background()); status.Healthy {
		t.Fatal("socket check should fail with no socket bound")
	}

	store, err := workspace.OpenStore(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	if status := health.StoreCheck(store).Check(context.Background()); !status.Healthy {
		t.Fatalf("store check: %+v", status)
	}
}

func TestSyncMarkerCheck(t *testing.T) {
	registry := workspace.NewRegistry()
	check := health.SyncMarkerCheck(registry)

	if status := check.Check(context.Background()); !status.Healthy {
		t.Fatalf("empty registry should be healthy: %+v", status)
	}

	registry.RegisterWorkspace("web", t.TempDir())
	if status := check.Check(context.Background()); !status.Healthy {
		t.Fatalf("existing root should be healthy: %+v", status)
	}

	registry.RegisterWorkspace("gone", "/nonexistent/devbox-workspace")
	status := check.Check(context.Background())
	if status.Healthy {
		t.Fatal("missing root should be unhealthy")
	}
	if !strings.Contains(status.Detail, "gone") {
		t.Fatalf("detail should name the workspace: %q", status.Detail)
	}
}

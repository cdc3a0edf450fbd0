package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"devbox/internal/errs"
)

func TestTypedErrorsSurviveWrapping(t *testing.T) {
	usage := errs.NewUsageError("missing command")
	wrapped := fmt.Errorf("dispatch: %w", fmt.Errorf("inner: %w", usage))
	if !errs.IsUsage(wrapped) {
		t.Fatal("expected wrapped usage error to remain detectable")
	}

	ws := errs.NewWorkspaceError("no active workspace for /tmp/project")
	if !errs.IsWorkspace(fmt.Errorf("resolve: %w", ws)) {
		t.Fatal("expected wrapped workspace error to remain detectable")
	}
}

func TestTypedPrecedenceOverMessageText(t *testing.T) {
	// A usage error whose text looks like a workspace-absence message must
	// still classify as usage.
	usage := errs.NewUsageError("runner not found")
	if got := errs.GetErrorCode(usage); got != errs.CodeUsage {
		t.Fatalf("GetErrorCode(usage) = %s, want %s", got, errs.CodeUsage)
	}
	if got := errs.GetExitCode(usage); got != 2 {
		t.Fatalf("GetExitCode(usage) = %d, want 2", got)
	}

	ws := errs.NewWorkspaceError("invalid workspace id")
	if got := errs.GetErrorCode(ws); got != errs.CodeWorkspaceNotFound {
		t.Fatalf("GetErrorCode(workspace) = %s, want %s", got, errs.CodeWorkspaceNotFound)
	}
}

func TestGetErrorCodeHeuristics(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want errs.Code
	}{
		{"nil-ish internal", errors.New("boom"), errs.CodeInternal},
		{"workspace phrase", errors.New("no active workspace for this directory"), errs.CodeWorkspaceNotFound},
		{"workspace not found", errors.New("workspace not found: web"), errs.CodeWorkspaceNotFound},
		{"invalid", errors.New("invalid env entry"), errs.CodeInvalidInput},
		{"timeout", errors.New("sync wait timed out"), errs.CodeTimeout},
		{"timeout alt", errors.New("dial timeout"), errs.CodeTimeout},
		{"unknown flag", errors.New("unknown flag: --frobnicate"), errs.CodeUsage},
		{"unknown command", errors.New(`unknown command "rnu" for "devbox"`), errs.CodeUsage},
		{"arg count", errors.New("accepts at most 2 arg(s), received 3"), errs.CodeUsage},
		{"arg range", errors.New("accepts between 1 and 2 arg(s), received 0"), errs.CodeUsage},
		{"invalid argument for flag", errors.New(`invalid argument "x" for "--timeout" flag`), errs.CodeUsage},
	}
	for _, tc := range cases {
		if got := errs.GetErrorCode(tc.err); got != tc.want {
			t.Errorf("%s: GetErrorCode(%q) = %s, want %s", tc.name, tc.err, got, tc.want)
		}
	}
}

func TestGetExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"usage", errs.NewUsageError("x"), 2},
		{"unknown flag", errors.New("unknown flag: --x"), 2},
		{"arg count", errors.New("accepts at most 2 arg(s)"), 2},
		{"plain", errors.New("boom"), 1},
		{"wrapped usage", fmt.Errorf("outer: %w", errs.NewUsageError("x")), 2},
		{"workspace", errs.NewWorkspaceError("gone"), 1},
	}
	for _, tc := range cases {
		if got := errs.GetExitCode(tc.err); got != tc.want {
			t.Errorf("%s: GetExitCode = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := errs.NewErrorResponse(errs.NewWorkspaceError("no active workspace"))
	if resp.Error.Code != errs.CodeWorkspaceNotFound {
		t.Fatalf("unexpected code %s", resp.Error.Code)
	}
	if resp.Error.Message != "no active workspace" {
		t.Fatalf("unexpected message %q", resp.Error.Message)
	}
}

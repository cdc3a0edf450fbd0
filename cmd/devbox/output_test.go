package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"devbox/internal/errs"
)

func TestRendererDedupsTextErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := newRenderer(false, &stdout, &stderr)

	out.Error(errors.New("boom"))
	out.Error(errors.New("boom"))
	out.Error(errors.New("other"))

	got := stderr.String()
	if strings.Count(got, "Error: boom") != 1 {
		t.Fatalf("duplicate error printed twice:\n%s", got)
	}
	if !strings.Contains(got, "Error: other") {
		t.Fatalf("distinct error missing:\n%s", got)
	}
}

func TestRendererResetClearsDedup(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := newRenderer(false, &stdout, &stderr)

	out.Error(errors.New("boom"))
	out.Reset()
	out.Error(errors.New("boom"))

	if strings.Count(stderr.String(), "Error: boom") != 2 {
		t.Fatalf("reset did not clear dedup guard:\n%s", stderr.String())
	}
}

func TestRendererJSONError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := newRenderer(true, &stdout, &stderr)

	out.Error(errs.NewUsageError("unknown flag: --bogus"))

	var resp errs.ErrorResponse
	if err := json.Unmarshal(stderr.Bytes(), &resp); err != nil {
		t.Fatalf("stderr is not JSON: %v\n%s", err, stderr.String())
	}
	if resp.Error.Code != errs.CodeUsage {
		t.Fatalf("code %s, want USAGE_ERROR", resp.Error.Code)
	}
	if resp.Error.Message != "unknown flag: --bogus" {
		t.Fatalf("message %q", resp.Error.Message)
	}
}

func TestRendererResultIndented(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := newRenderer(true, &stdout, &stderr)

	if err := out.Result(map[string]any{"a": map[string]int{"b": 1}}); err != nil {
		t.Fatalf("Result: %v", err)
	}
	if !strings.Contains(stdout.String(), "\n  \"a\"") {
		t.Fatalf("expected 2-space indentation:\n%s", stdout.String())
	}
}

func TestParseEnvFlags(t *testing.T) {
	env, err := parseEnvFlags([]string{"A=1", "B=two=parts"})
	if err != nil {
		t.Fatalf("parseEnvFlags: %v", err)
	}
	if env["A"] != "1" || env["B"] != "two=parts" {
		t.Fatalf("parsed %+v", env)
	}

	if _, err := parseEnvFlags([]string{"NOEQUALS"}); !errs.IsUsage(err) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if _, err := parseEnvFlags([]string{"=value"}); !errs.IsUsage(err) {
		t.Fatalf("expected usage error for empty key, got %v", err)
	}

	env, err = parseEnvFlags(nil)
	if err != nil || env != nil {
		t.Fatalf("empty input: %+v, %v", env, err)
	}
}

package testrunner_test

import (
	"os"
	"path/filepath"
	"testing"

	"devbox/internal/testrunner"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDetectPriority(t *testing.T) {
	cases := []struct {
		name  string
		setup func(t *testing.T, dir string)
		want  string
	}{
		{
			name: "vitest wins over jest",
			setup: func(t *testing.T, dir string) {
				writeFile(t, dir, "package.json",
					`{"devDependencies":{"vitest":"^2.0.0","jest":"^29.0.0"}}`)
			},
			want: testrunner.Vitest,
		},
		{
			name: "jest from devDependencies",
			setup: func(t *testing.T, dir string) {
				writeFile(t, dir, "package.json", `{"devDependencies":{"jest":"^29.0.0"}}`)
			},
			want: testrunner.Jest,
		},
		{
			name: "mocha from test script",
			setup: func(t *testing.T, dir string) {
				writeFile(t, dir, "package.json", `{"scripts":{"test":"mocha spec/"}}`)
			},
			want: testrunner.Mocha,
		},
		{
			name: "pytest from conftest",
			setup: func(t *testing.T, dir string) {
				writeFile(t, dir, "conftest.py", "")
			},
			want: testrunner.Pytest,
		},
		{
			name: "pytest from pyproject",
			setup: func(t *testing.T, dir string) {
				writeFile(t, dir, "pyproject.toml", "[tool.pytest.ini_options]\n")
			},
			want: testrunner.Pytest,
		},
		{
			name: "go module",
			setup: func(t *testing.T, dir string) {
				writeFile(t, dir, "go.mod", "module example\n")
			},
			want: testrunner.GoTest,
		},
		{
			name: "cargo project",
			setup: func(t *testing.T, dir string) {
				writeFile(t, dir, "Cargo.toml", "[package]\nname = \"example\"\n")
			},
			want: testrunner.Cargo,
		},
		{
			name: "npm fallback for plain node project",
			setup: func(t *testing.T, dir string) {
				writeFile(t, dir, "package.json", `{"scripts":{"test":"node test.js"}}`)
			},
			want: testrunner.NPMTest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			tc.setup(t, dir)
			r, err := testrunner.Detect(dir)
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if r.Name != tc.want {
				t.Fatalf("detected %q, want %q", r.Name, tc.want)
			}
		})
	}
}

func TestDetectEmptyDirectory(t *testing.T) {
	if _, err := testrunner.Detect(t.TempDir()); err == nil {
		t.Fatal("expected detection error for empty directory")
	}
}

func TestByNameUnknown(t *testing.T) {
	if _, err := testrunner.ByName("tap"); err == nil {
		t.Fatal("expected error for unknown runner")
	}
}

func TestBuildCommand(t *testing.T) {
	cases := []struct {
		runner string
		opts   testrunner.Options
		want   string
	}{
		{testrunner.Vitest, testrunner.Options{}, "npx vitest run"},
		{testrunner.Vitest, testrunner.Options{Watch: true}, "npx vitest"},
		{testrunner.Vitest, testrunner.Options{Coverage: true, Pattern: "auth"}, "npx vitest run --coverage auth"},
		{testrunner.Jest, testrunner.Options{Watch: true, Coverage: true}, "npx jest --watch --coverage"},
		{testrunner.Mocha, testrunner.Options{Pattern: "spec/auth.js"}, "npx mocha spec/auth.js"},
		{testrunner.Pytest, testrunner.Options{Pattern: "login", Coverage: true}, "pytest --cov -k login"},
		{testrunner.GoTest, testrunner.Options{Pattern: "TestLogin"}, "go test -run TestLogin ./..."},
		{testrunner.GoTest, testrunner.Options{Coverage: true}, "go test -cover ./..."},
		{testrunner.Cargo, testrunner.Options{Pattern: "login"}, "cargo test login"},
		{testrunner.NPMTest, testrunner.Options{Pattern: "auth"}, "npm test -- auth"},
	}

	for _, tc := range cases {
		r, err := testrunner.ByName(tc.runner)
		if err != nil {
			t.Fatalf("ByName(%q): %v", tc.runner, err)
		}
		if got := r.BuildCommand(tc.opts); got != tc.want {
			t.Errorf("%s %+v: built %q, want %q", tc.runner, tc.opts, got, tc.want)
		}
	}
}

// Package testrunner detects a project's test tool and builds the final
// invocation string. Detection is a stateless heuristic over well-known
// project files; an explicit runner name always wins.
package testrunner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Runner names in detection priority order.
const (
	Vitest  = "vitest"
	Jest    = "jest"
	Mocha   = "mocha"
	Pytest  = "pytest"
	GoTest  = "go"
	Cargo   = "cargo"
	NPMTest = "npm"
)

// Options carries the per-invocation flags a runner command is built from.
type Options struct {
	Pattern  string
	Watch    bool
	Coverage bool
}

// Runner describes a selected test tool.
type Runner struct {
	Name  string
	build func(Options) string
}

// BuildCommand returns the shell command for the given options.
func (r *Runner) BuildCommand(opts Options) string {
	return r.build(opts)
}

// ByName returns the runner with the given name, or an error listing the
// known names.
func ByName(name string) (*Runner, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, r := range runners {
		if r.Name == name {
			runner := r
			return &runner, nil
		}
	}
	return nil, fmt.Errorf("unknown test runner %q (known: vitest, jest, mocha, pytest, go, cargo, npm)", name)
}

// Detect inspects the project directory and picks a runner in priority order:
// vitest, jest, mocha, pytest, go test, cargo test, then npm test as the
// fallback for any node project.
func Detect(projectPath string) (*Runner, error) {
	pkg := readPackageJSON(projectPath)

	if pkg != nil {
		for _, name := range []string{Vitest, Jest, Mocha} {
			if pkg.depends(name) {
				return mustByName(name), nil
			}
		}
	}
	if hasPytest(projectPath) {
		return mustByName(Pytest), nil
	}
	if fileExists(filepath.Join(projectPath, "go.mod")) {
		return mustByName(GoTest), nil
	}
	if fileExists(filepath.Join(projectPath, "Cargo.toml")) {
		return mustByName(Cargo), nil
	}
	if pkg != nil {
		return mustByName(NPMTest), nil
	}
	return nil, fmt.Errorf("no test runner detected in %s", projectPath)
}

func mustByName(name string) *Runner {
	r, err := ByName(name)
	if err != nil {
		panic(err)
	}
	return r
}

var runners = []Runner{
	{Name: Vitest, build: func(o Options) string {
		parts := []string{"npx", "vitest"}
		if !o.Watch {
			parts = append(parts, "run")
		}
		if o.Coverage {
			parts = append(parts, "--coverage")
		}
		return joinWithPattern(parts, o.Pattern)
	}},
	{Name: Jest, build: func(o Options) string {
		parts := []string{"npx", "jest"}
		if o.Watch {
			parts = append(parts, "--watch")
		}
		if o.Coverage {
			parts = append(parts, "--coverage")
		}
		return joinWithPattern(parts, o.Pattern)
	}},
	{Name: Mocha, build: func(o Options) string {
		parts := []string{"npx", "mocha"}
		if o.Watch {
			parts = append(parts, "--watch")
		}
		return joinWithPattern(parts, o.Pattern)
	}},
	{Name: Pytest, build: func(o Options) string {
		parts := []string{"pytest"}
		if o.Coverage {
			parts = append(parts, "--cov")
		}
		if o.Pattern != "" {
			parts = append(parts, "-k", o.Pattern)
		}
		return strings.Join(parts, " ")
	}},
	{Name: GoTest, build: func(o Options) string {
		parts := []string{"go", "test"}
		if o.Coverage {
			parts = append(parts, "-cover")
		}
		if o.Pattern != "" {
			parts = append(parts, "-run", o.Pattern)
		}
		parts = append(parts, "./...")
		return strings.Join(parts, " ")
	}},
	{Name: Cargo, build: func(o Options) string {
		parts := []string{"cargo", "test"}
		return joinWithPattern(parts, o.Pattern)
	}},
	{Name: NPMTest, build: func(o Options) string {
		parts := []string{"npm", "test"}
		if o.Pattern != "" {
			parts = append(parts, "--", o.Pattern)
		}
		return strings.Join(parts, " ")
	}},
}

func joinWithPattern(parts []string, pattern string) string {
	if pattern != "" {
		parts = append(parts, pattern)
	}
	return strings.Join(parts, " ")
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Scripts         map[string]string `json:"scripts"`
}

func (p *packageJSON) depends(name string) bool {
	if _, ok := p.Dependencies[name]; ok {
		return true
	}
	if _, ok := p.DevDependencies[name]; ok {
		return true
	}
	return strings.Contains(p.Scripts["test"], name)
}

func readPackageJSON(projectPath string) *packageJSON {
	data, err := os.ReadFile(filepath.Join(projectPath, "package.json"))
	if err != nil {
		return nil
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil
	}
	return &pkg
}

func hasPytest(projectPath string) bool {
	for _, name := range []string{"pytest.ini", "conftest.py"} {
		if fileExists(filepath.Join(projectPath, name)) {
			return true
		}
	}
	data, err := os.ReadFile(filepath.Join(projectPath, "pyproject.toml"))
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "pytest")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

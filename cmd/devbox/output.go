package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"devbox/internal/errs"
)

// renderer carries one invocation's output mode and the error-dedup guard.
// Commands receive it as a value instead of consulting process globals, so a
// host embedding the CLI can run invocations with different modes
// concurrently.
type renderer struct {
	jsonMode bool
	stdout   io.Writer
	stderr   io.Writer

	mu   sync.Mutex
	seen map[string]struct{}
}

func newRenderer(jsonMode bool, stdout, stderr io.Writer) *renderer {
	return &renderer{
		jsonMode: jsonMode,
		stdout:   stdout,
		stderr:   stderr,
		seen:     make(map[string]struct{}),
	}
}

// JSON reports whether the invocation asked for machine-readable output.
func (r *renderer) JSON() bool {
	return r.jsonMode
}

// Result writes v as 2-space-indented JSON. Text-mode commands format their
// own output and never call Result.
func (r *renderer) Result(v any) error {
	enc := json.NewEncoder(r.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Error reports err on stderr. JSON mode emits the structured error envelope;
// text mode prints `Error: <message>`, each distinct message at most once per
// renderer.
func (r *renderer) Error(err error) {
	if err == nil {
		return
	}
	if r.jsonMode {
		enc := json.NewEncoder(r.stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(errs.NewErrorResponse(err))
		return
	}

	msg := err.Error()
	r.mu.Lock()
	_, dup := r.seen[msg]
	if !dup {
		r.seen[msg] = struct{}{}
	}
	r.mu.Unlock()
	if dup {
		return
	}
	fmt.Fprintf(r.stderr, "Error: %s\n", msg)
}

// Reset clears the dedup guard so a new invocation reusing the renderer
// reports errors afresh.
func (r *renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = make(map[string]struct{})
}

// Printf writes text-mode output to stdout.
func (r *renderer) Printf(format string, args ...any) {
	fmt.Fprintf(r.stdout, format, args...)
}

// Println writes a text-mode line to stdout.
func (r *renderer) Println(args ...any) {
	fmt.Fprintln(r.stdout, args...)
}

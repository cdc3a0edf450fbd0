// Package workspace holds the daemon's view of registered project
// environments: an in-memory registry with copy-returning accessors for the
// hot path, and a sqlite store that persists workspace records and per-run
// history across daemon restarts.
package workspace

// Package daemon hosts the devbox supervisor: workspace registry, sync
// coordinator, command execution, run history, health checks, and the
// single-instance startup reconciliation that cleans up after a previous
// daemon's leftovers.
package daemon

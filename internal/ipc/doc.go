// Package ipc implements the JSON-RPC control plane between the devbox CLI
// and the daemon, carried over a Unix domain socket under the daemon home.
package ipc

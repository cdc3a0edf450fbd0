// Package syncwait implements the per-workspace sync barrier: the gate that
// holds command execution until the external file-sync engine has flushed all
// pending changes into the workspace filesystem. The wait is bounded; on
// timeout the caller proceeds unsynced and the elapsed wait is reported.
package syncwait

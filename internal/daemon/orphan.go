package daemon

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"devbox/internal/logging"
)

// ProcessProbe answers whether a pid refers to a live process. The production
// probe uses signal 0; tests substitute a canned implementation.
type ProcessProbe interface {
	Alive(pid int) bool
}

// NewProcessProbe returns the platform probe.
func NewProcessProbe() ProcessProbe {
	return signalProbe{}
}

type signalProbe struct{}

// Alive sends signal 0. EPERM means the process exists but belongs to another
// user, which still counts as alive.
func (signalProbe) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, unix.EPERM)
}

// SetProcessProbe substitutes the liveness probe. Intended for tests.
func (s *Supervisor) SetProcessProbe(probe ProcessProbe) {
	if probe != nil {
		s.probe = probe
	}
}

// cleanupOrphanedProcesses reconciles the pid file left by a previous daemon.
// A missing file is fine. An unparseable file is stale by definition and is
// deleted. A parseable pid is probed: dead means delete, alive means another
// daemon owns this home and startup must fail.
func (s *Supervisor) cleanupOrphanedProcesses() error {
	pidPath := s.cfg.PIDFilePath()
	data, err := os.ReadFile(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read pid file: %w", err)
	}

	pid, parseErr := strconv.Atoi(strings.TrimSpace(string(data)))
	if parseErr != nil || pid <= 0 {
		s.logger.Warn("removing unparseable pid file",
			logging.String("path", pidPath))
		return removeArtifact(pidPath)
	}

	if s.probe.Alive(pid) {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}

	s.logger.Info("removing stale pid file",
		logging.Int("pid", pid),
		logging.String("path", pidPath))
	return removeArtifact(pidPath)
}

// checkAndCleanStaleSocket reconciles the control socket path. A missing path
// is fine. A non-socket file is deleted. A socket nobody answers on is stale
// and deleted; one that accepts a connection belongs to a live daemon and
// startup must fail.
func (s *Supervisor) checkAndCleanStaleSocket() error {
	socketPath := s.cfg.SocketPath()
	info, err := os.Stat(socketPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat socket: %w", err)
	}

	if info.Mode()&os.ModeSocket == 0 {
		s.logger.Warn("removing non-socket file at socket path",
			logging.String("path", socketPath))
		return removeArtifact(socketPath)
	}

	conn, dialErr := net.DialTimeout("unix", socketPath, time.Second)
	if dialErr == nil {
		_ = conn.Close()
		return fmt.Errorf("daemon already running (socket %s is live)", socketPath)
	}

	s.logger.Info("removing stale socket",
		logging.String("path", socketPath))
	return removeArtifact(socketPath)
}

func removeArtifact(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale artifact %s: %w", path, err)
	}
	return nil
}

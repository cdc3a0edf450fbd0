package syncwait

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"devbox/internal/logging"
)

// watchMarker watches dir for the marker file appearing or being rewritten.
// It returns a channel that receives once when the marker lands, plus a
// cleanup func. When the directory cannot be watched (missing, or fsnotify
// unavailable) the returned channel never fires and callers fall back to
// polling.
func watchMarker(dir, marker string, logger *slog.Logger) (<-chan struct{}, func()) {
	hit := make(chan struct{}, 1)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Debug("marker watcher unavailable, using polling", logging.Error(err))
		return hit, func() {}
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		logger.Debug("marker directory not watchable, using polling",
			logging.String("dir", dir), logging.Error(err))
		return hit, func() {}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != marker {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					select {
					case hit <- struct{}{}:
					default:
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Debug("marker watcher error", logging.Error(err))
			}
		}
	}()

	return hit, func() {
		close(done)
		_ = watcher.Close()
	}
}

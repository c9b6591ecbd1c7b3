package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"prizedesk/internal/logging"
)

// watchQuiet is how long the file must stay untouched before it is re-read.
// Editors and yaml writers often emit several events per save.
const watchQuiet = 200 * time.Millisecond

// Watch re-reads the settings file whenever it changes on disk and calls
// onChange with the new values. Writes that leave the settings unchanged,
// including this manager's own saves, are not reported. Watch returns once
// the watch is installed; it stops when ctx is done.
func (m *Manager) Watch(ctx context.Context, onChange func(Settings)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings watcher: %w", err)
	}

	// Watch the directory: atomic replaces remove the watched inode.
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		w.Close()
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logging.Get(logging.CategorySettings).Debug("watching %s", m.path)

	go m.watchLoop(ctx, w, onChange)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context, w *fsnotify.Watcher, onChange func(Settings)) {
	defer w.Close()
	log := logging.Get(logging.CategorySettings)
	target := filepath.Clean(m.path)

	ticker := time.NewTicker(watchQuiet / 2)
	defer ticker.Stop()

	var lastEvent time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			lastEvent = time.Now()

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn("settings watcher: %v", err)

		case <-ticker.C:
			if lastEvent.IsZero() || time.Since(lastEvent) < watchQuiet {
				continue
			}
			lastEvent = time.Time{}

			before := m.Get()
			if err := m.Load(); err != nil {
				// A half-written file; the next write event retries.
				log.Warn("reload %s: %v", m.path, err)
				continue
			}
			if after := m.Get(); after != before {
				log.Info("settings reloaded from disk")
				onChange(after)
			}
		}
	}
}

package internal

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchSite runs an fsnotify watcher over the local site directory until
// ctx is cancelled, invoking onChange (debounced) whenever feed-relevant
// files change. New directories created at runtime are added to the watch
// list.
func watchSite(ctx context.Context, root string, logger *slog.Logger, onChange func()) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("watcher: init failed", slog.String("error", err.Error()))
		return
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		logger.Warn("watcher: add dirs failed", slog.String("error", err.Error()))
		return
	}

	logger.Info("watcher: started", slog.String("root", root))

	// Debounce bursts of events (editors write several times per save).
	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(200 * time.Millisecond)
			timerCh = timer.C
		} else {
			timer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return

		case <-timerCh:
			logger.Debug("watcher: site changed, refreshing")
			onChange()

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					// Newly created directories need explicit watches.
					_ = addDirsRecursive(w, ev.Name)
				}
			}
			if relevantFile(ev.Name) {
				schedule()
			}

		case werr, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher: error", slog.String("error", werr.Error()))
		}
	}
}

// relevantFile reports whether a change to the path affects hydrated state:
// the JSON indexes and markdown bodies do, everything else is static.
func relevantFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".md", ".markdown":
		return true
	}
	return false
}

// addDirsRecursive registers root and every subdirectory with the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}

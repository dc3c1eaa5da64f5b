// Package watch notices when another process writes the store file.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch observes dir and calls fn, debounced, whenever file or one of its
// SQLite companions (-wal, -journal) is written, created or replaced. It
// blocks until ctx is cancelled.
//
// fn runs on the watcher goroutine; events arriving while it runs are
// folded into the next debounce window.
func Watch(ctx context.Context, dir, file string, debounce time.Duration, logger *slog.Logger, fn func(context.Context)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	logger.Info("watcher: started", slog.String("dir", dir), slog.String("file", file))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			logger.Debug("watcher: store changed", slog.String("file", file))
			fn(ctx)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !matches(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func matches(name, file string) bool {
	if name == file {
		return true
	}
	rest, ok := strings.CutPrefix(name, file)
	return ok && (rest == "-wal" || rest == "-journal")
}

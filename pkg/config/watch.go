package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a config file whenever it changes on disk.
type Watcher struct {
	Path     string
	Debounce time.Duration
	Logger   *log.Logger

	// OnChange receives every successfully loaded and validated config.
	// Invalid edits are logged and skipped; the previous config stays active.
	OnChange func(*Config)
}

// Watch is shorthand for a Watcher with default debounce.
func Watch(ctx context.Context, path string, logger *log.Logger, fn func(*Config)) error {
	w := &Watcher{Path: path, Logger: logger, OnChange: fn}
	return w.Run(ctx)
}

// Run blocks until ctx is done. The parent directory is watched rather than
// the file itself so atomic rename-on-save keeps working.
func (w *Watcher) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("config")

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	abs, err := filepath.Abs(w.Path)
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	logger.Debug("watching", "path", abs)

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "err", err)

		case <-timer.C:
			cfg, err := Load(abs)
			if err != nil {
				logger.Warn("ignoring invalid config", "err", err)
				continue
			}
			logger.Info("config reloaded", "path", abs)
			if w.OnChange != nil {
				w.OnChange(cfg)
			}
		}
	}
}

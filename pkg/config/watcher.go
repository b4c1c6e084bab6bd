package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a configuration file and triggers reloads when it
// changes. Changes are debounced so editors that write in several steps
// trigger one reload, not a storm.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	timer   *time.Timer
	stopCh  chan struct{}
}

// NewWatcher creates a watcher for the configuration file at path. A
// debounce of zero falls back to 100ms; a nil logger falls back to
// slog.Default.
func NewWatcher(path string, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		logger:   logger.With("component", "config.watcher"),
		stopCh:   make(chan struct{}),
	}
}

// Watch blocks, invoking onReload after each debounced change to the file,
// until the context is cancelled or Stop is called. The file's directory is
// watched rather than the file itself, so atomic rename-over writes are
// picked up.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Config) error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w.logger.Info("config watcher started",
		"path", w.path,
		"debounce_ms", w.debounce.Milliseconds(),
	)

	reloads := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("config watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.scheduleReload(reloads)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-reloads:
			w.reload(onReload)
		}
	}
}

// Stop halts the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
}

// relevant reports whether the event concerns the watched file and a
// mutating operation.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// scheduleReload arms the debounce timer, restarting it if already armed.
func (w *Watcher) scheduleReload(reloads chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case reloads <- struct{}{}:
		default:
		}
	})
}

// reload loads the file and hands it to the callback. A file that fails to
// load or validate keeps the previous configuration in effect.
func (w *Watcher) reload(onReload func(*Config) error) {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload skipped", "error", err)
		return
	}

	if err := onReload(cfg); err != nil {
		w.logger.Warn("config reload rejected", "error", err)
		return
	}

	w.logger.Info("config reloaded", "limiters", len(cfg.Limiters))
}

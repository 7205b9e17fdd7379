package app

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"openapi-mcp/internal/config"
	"openapi-mcp/pkg/logging"
)

// defaultDebounce is how long the watcher waits for further writes before reloading.
const defaultDebounce = 500 * time.Millisecond

// ReloadFunc is called once per debounced burst of changes.
type ReloadFunc func(ctx context.Context) error

// ConfigWatcher reloads the configuration when the config file or one of the
// local API documents it references changes.
//
// Directories are watched rather than files, since editors usually replace a
// file on save instead of writing it in place.
type ConfigWatcher struct {
	mu sync.Mutex

	watcher  *fsnotify.Watcher
	reload   ReloadFunc
	debounce time.Duration

	// files is the set of absolute paths whose changes trigger a reload.
	files map[string]bool
	dirs  map[string]bool

	timer   *time.Timer
	reloads int
}

// NewConfigWatcher creates a watcher for the files of cfg. A zero debounce
// uses 500ms.
func NewConfigWatcher(cfg config.Config, reload ReloadFunc, debounce time.Duration) (*ConfigWatcher, error) {
	if debounce == 0 {
		debounce = defaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &ConfigWatcher{
		watcher:  fw,
		reload:   reload,
		debounce: debounce,
		dirs:     make(map[string]bool),
	}
	w.track(cfg)
	return w, nil
}

// watchedFiles lists the config file and every local specPath of cfg.
func watchedFiles(cfg config.Config) []string {
	var files []string
	if cfg.Path != "" {
		files = append(files, cfg.Path)
	}
	for _, a := range cfg.APIs {
		if a.SpecPath != "" {
			files = append(files, a.SpecPath)
		}
	}
	return files
}

// track replaces the watched file set with the files of cfg.
func (w *ConfigWatcher) track(cfg config.Config) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.files = make(map[string]bool)
	for _, f := range watchedFiles(cfg) {
		abs, err := filepath.Abs(f)
		if err != nil {
			abs = f
		}
		w.files[abs] = true

		dir := filepath.Dir(abs)
		if w.dirs[dir] {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			logging.Warn("Watcher", "Failed to watch %s: %v", dir, err)
			continue
		}
		w.dirs[dir] = true
		logging.Debug("Watcher", "Watching directory: %s", dir)
	}
}

// Run processes file events until ctx is done. It closes the underlying
// fsnotify watcher on return.
func (w *ConfigWatcher) Run(ctx context.Context) {
	defer w.stop()
	logging.Info("Watcher", "Watching %d file(s) for configuration changes", w.fileCount())

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher", err, "Filesystem watcher error")
		}
	}
}

func (w *ConfigWatcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}

	name, err := filepath.Abs(event.Name)
	if err != nil {
		name = event.Name
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.files[name] {
		return
	}
	logging.Debug("Watcher", "Change detected: %s %s", event.Op, name)

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.fire(ctx) })
}

func (w *ConfigWatcher) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := w.reload(ctx); err != nil {
		logging.Error("Watcher", err, "Reload failed, keeping the previous configuration")
		return
	}
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
}

// Reloads returns how many reloads have succeeded.
func (w *ConfigWatcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *ConfigWatcher) fileCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.files)
}

func (w *ConfigWatcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if err := w.watcher.Close(); err != nil {
		logging.Error("Watcher", err, "Error closing filesystem watcher")
	}
}

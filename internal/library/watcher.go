package library

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vrplayer/vrprobe/internal/logger"
	"github.com/vrplayer/vrprobe/internal/metrics"
)

// DefaultWatchDebounce is how long a file must stay quiet before it is
// re-detected.
const DefaultWatchDebounce = 500 * time.Millisecond

// Watcher keeps the catalog in sync with library directories: created or
// rewritten videos are re-detected once they stop changing, removed videos
// are dropped.
type Watcher struct {
	scanner  *Scanner
	dirs     []string
	debounce time.Duration
	logger   logger.Logger

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	loopWG  sync.WaitGroup

	mu     sync.Mutex
	timers map[string]*time.Timer
	jobWG  sync.WaitGroup
}

// NewWatcher creates a Watcher over dirs. A non-positive debounce uses
// DefaultWatchDebounce.
func NewWatcher(scanner *Scanner, dirs []string, debounce time.Duration, log logger.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	if log == nil {
		log = logger.NewNullLogger()
	}
	return &Watcher{
		scanner:  scanner,
		dirs:     dirs,
		debounce: debounce,
		logger:   log.WithField("component", "watcher"),
		timers:   make(map[string]*time.Timer),
	}
}

// Start begins watching. It returns once every directory is registered.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	for _, dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	w.watcher = fw
	w.cancel = cancel

	w.loopWG.Add(1)
	go w.loop(ctx)

	w.logger.WithField("directories", w.dirs).Info("Watching library directories")
	return nil
}

// Stop ends the watch and waits for pending detections to finish.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	_ = w.watcher.Close()
	w.loopWG.Wait()

	w.mu.Lock()
	for path, t := range w.timers {
		if t.Stop() {
			w.jobWG.Done()
		}
		delete(w.timers, path)
	}
	w.mu.Unlock()

	w.jobWG.Wait()
	w.logger.Info("Library watcher stopped")
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.loopWG.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("Library watcher error")
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !IsSupportedVideoFormat(event.Name, w.scanner.Formats()) {
		return
	}

	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		metrics.IncrementWatcherEvent("remove")
		w.cancelPending(event.Name)
		if err := w.scanner.Remove(ctx, event.Name); err != nil {
			w.logger.WithError(err).WithField("path", event.Name).Warn("Failed to drop removed file")
			return
		}
		w.logger.WithField("path", event.Name).Debug("Removed file dropped from catalog")

	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		if event.Has(fsnotify.Create) {
			metrics.IncrementWatcherEvent("create")
		} else {
			metrics.IncrementWatcherEvent("write")
		}
		w.schedule(ctx, event.Name)
	}
}

// schedule (re)starts the quiet-period timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if old, ok := w.timers[path]; ok && old.Stop() {
		w.jobWG.Done()
	}

	w.jobWG.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.jobWG.Done()

		w.mu.Lock()
		if w.timers[path] == t {
			delete(w.timers, path)
		}
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		entry, err := w.scanner.ProcessFile(ctx, path)
		if err != nil {
			w.logger.WithError(err).WithField("path", path).Warn("Re-detection failed")
			return
		}
		w.logger.WithFields(map[string]interface{}{
			"path":  path,
			"is_vr": entry.Result.IsVR,
		}).Info("File re-detected")
	})
	w.timers[path] = t
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		if t.Stop() {
			w.jobWG.Done()
		}
		delete(w.timers, path)
	}
}

package credstore

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"bearer/pkg/logging"
)

const (
	// DefaultWatchInterval is the fallback polling interval when fsnotify is
	// not available.
	DefaultWatchInterval = 30 * time.Second

	// DefaultDebounceInterval is the time to wait before notifying after the
	// last file change is detected.
	DefaultDebounceInterval = 500 * time.Millisecond
)

// WatcherConfig holds configuration for the credential file watcher.
type WatcherConfig struct {
	// Path is the credential file to watch.
	Path string

	// WatchInterval is the fallback polling interval when fsnotify is not
	// available.
	WatchInterval time.Duration

	// OnChange is called when the credential file changes.
	OnChange func()
}

// Watcher monitors the credential file for changes made by other processes
// (another login, a logout) so in-memory state can be invalidated. It uses
// fsnotify for efficient file system monitoring with a fallback to polling
// for environments where fsnotify is not available or reliable.
type Watcher struct {
	mu sync.Mutex

	config WatcherConfig

	// fsWatcher is the fsnotify watcher (nil if fsnotify is unavailable)
	fsWatcher *fsnotify.Watcher

	// stopCh signals the watcher to stop
	stopCh chan struct{}

	// running indicates if the watcher is active
	running bool

	// lastModTime tracks the last modification time for fallback polling
	lastModTime time.Time

	// debounceTimer helps prevent rapid successive notifications
	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// NewWatcher creates a new credential file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.WatchInterval == 0 {
		config.WatchInterval = DefaultWatchInterval
	}

	return &Watcher{config: config}
}

// Start begins watching for credential file changes.
// The containing directory is watched rather than the file itself because
// writers replace the file, which would otherwise drop the watch.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.stopCh = make(chan struct{})
	w.running = true

	// Try to use fsnotify for efficient file watching
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("CredWatcher", "fsnotify not available, falling back to polling: %v", err)
		go w.pollForChanges()
		return nil
	}

	w.fsWatcher = watcher

	if err := w.fsWatcher.Add(filepath.Dir(w.config.Path)); err != nil {
		logging.Warn("CredWatcher", "Failed to watch directory %s, falling back to polling: %v",
			filepath.Dir(w.config.Path), err)
		w.fsWatcher.Close()
		w.fsWatcher = nil
		go w.pollForChanges()
		return nil
	}

	// Capture channels before releasing lock to avoid race conditions
	eventsCh := w.fsWatcher.Events
	errorsCh := w.fsWatcher.Errors

	go w.processEvents(eventsCh, errorsCh)

	logging.Debug("CredWatcher", "Started watching %s for credential changes", w.config.Path)
	return nil
}

// processEvents handles fsnotify events.
// The channels are passed as parameters to avoid race conditions with Stop().
func (w *Watcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("CredWatcher", err, "fsnotify error")
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != filepath.Base(w.config.Path) {
		return
	}

	// Writes, creates, and removes all change what Load would return
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	logging.Debug("CredWatcher", "Credential file changed: %s", event.Name)

	w.notifyDebounced()
}

// notifyDebounced invokes OnChange after a debounce period.
// This prevents multiple rapid notifications when a writer touches the file
// several times in quick succession.
func (w *Watcher) notifyDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(DefaultDebounceInterval, func() {
		w.mu.Lock()
		running := w.running
		callback := w.config.OnChange
		w.mu.Unlock()

		if running && callback != nil {
			callback()
		}
	})
}

// pollForChanges implements fallback polling when fsnotify is not available.
func (w *Watcher) pollForChanges() {
	ticker := time.NewTicker(w.config.WatchInterval)
	defer ticker.Stop()

	w.updateModTime()

	for {
		select {
		case <-w.stopCh:
			return

		case <-ticker.C:
			if w.checkForChanges() {
				logging.Debug("CredWatcher", "Credential file change detected via polling")
				w.notifyDebounced()
			}
		}
	}
}

// updateModTime records the current modification time of the watched file.
func (w *Watcher) updateModTime() {
	if info, err := os.Stat(w.config.Path); err == nil {
		w.lastModTime = info.ModTime()
	}
}

// checkForChanges reports whether the watched file has been modified since
// the last poll.
func (w *Watcher) checkForChanges() bool {
	info, err := os.Stat(w.config.Path)
	if err != nil {
		// A vanished file is a change (logout from another process)
		if !w.lastModTime.IsZero() {
			w.lastModTime = time.Time{}
			return true
		}
		return false
	}

	// A zero lastModTime means the file appeared since the last poll
	currentModTime := info.ModTime()
	changed := w.lastModTime.IsZero() || currentModTime.After(w.lastModTime)
	w.lastModTime = currentModTime

	return changed
}

// Stop gracefully stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	// Cancel any pending debounce timer
	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	// Close fsnotify watcher if present
	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("CredWatcher", "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}

	logging.Debug("CredWatcher", "Stopped credential watcher")
	return nil
}

// IsRunning returns whether the watcher is currently active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

package auth

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"copilotauth/pkg/logging"
)

const (
	// DefaultWatchInterval is the fallback polling interval used when
	// fsnotify is unavailable.
	DefaultWatchInterval = 5 * time.Second

	// DefaultDebounceInterval is the quiet period required after the last
	// file change before the callback fires. Logins write both artifacts
	// back to back; one notification should cover both.
	DefaultDebounceInterval = 300 * time.Millisecond
)

// watchedFiles are the credential artifacts the watcher reacts to.
var watchedFiles = []string{"access-token", "api-key.json"}

// WatcherConfig configures a credential Watcher.
type WatcherConfig struct {
	// TokenDir is the credential directory to watch.
	TokenDir string

	// OnChange is called after credential files change, debounced.
	OnChange func()

	// WatchInterval is the fallback polling interval when fsnotify is not
	// available. Zero uses DefaultWatchInterval.
	WatchInterval time.Duration

	// DebounceInterval overrides the debounce quiet period. Zero uses
	// DefaultDebounceInterval.
	DebounceInterval time.Duration
}

// Watcher notices credential changes made by another process sharing the
// directory, for example a second terminal running login or logout. It
// uses fsnotify with a polling fallback for filesystems where inotify is
// unreliable.
type Watcher struct {
	mu      sync.Mutex
	config  WatcherConfig
	fsw     *fsnotify.Watcher
	stopCh  chan struct{}
	running bool

	lastModTimes map[string]time.Time

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

// NewWatcher creates a credential watcher. Start must be called to begin
// watching.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.WatchInterval <= 0 {
		config.WatchInterval = DefaultWatchInterval
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultDebounceInterval
	}
	return &Watcher{
		config:       config,
		lastModTimes: make(map[string]time.Time),
	}
}

// Start begins watching. Starting an already-running watcher is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.stopCh = make(chan struct{})
	w.running = true

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("CredWatcher", "fsnotify not available, falling back to polling: %v", err)
		go w.pollForChanges()
		return nil
	}

	if err := fsw.Add(w.config.TokenDir); err != nil {
		logging.Warn("CredWatcher", "failed to watch %s, falling back to polling: %v",
			w.config.TokenDir, err)
		fsw.Close()
		go w.pollForChanges()
		return nil
	}

	w.fsw = fsw
	go w.processEvents(fsw.Events, fsw.Errors)

	logging.Debug("CredWatcher", "watching %s for credential changes", w.config.TokenDir)
	return nil
}

// Stop ends watching. Stopping a stopped watcher is a no-op.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)

	if w.fsw != nil {
		w.fsw.Close()
		w.fsw = nil
	}

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceMu.Unlock()
}

// processEvents handles fsnotify events. The channels are passed as
// parameters to avoid racing with Stop closing the watcher.
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

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !isCredentialFile(filepath.Base(event.Name)) {
		return
	}
	// Removal matters here too: logout in another process should flip
	// this one's view to unauthenticated.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	logging.Debug("CredWatcher", "credential file changed: %s", event.Name)
	w.notifyDebounced()
}

func isCredentialFile(name string) bool {
	for _, f := range watchedFiles {
		if name == f {
			return true
		}
	}
	return false
}

// notifyDebounced fires the callback after the debounce quiet period,
// collapsing bursts of changes into one notification.
func (w *Watcher) notifyDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.config.DebounceInterval, func() {
		w.mu.Lock()
		running := w.running
		callback := w.config.OnChange
		w.mu.Unlock()

		if running && callback != nil {
			callback()
		}
	})
}

// pollForChanges is the fallback when fsnotify cannot be used.
func (w *Watcher) pollForChanges() {
	ticker := time.NewTicker(w.config.WatchInterval)
	defer ticker.Stop()

	w.updateModTimes()

	for {
		select {
		case <-w.stopCh:
			return

		case <-ticker.C:
			if w.checkForChanges() {
				logging.Debug("CredWatcher", "credential changes detected via polling")
				w.notifyDebounced()
			}
		}
	}
}

// checkForChanges compares current modification times against the last
// observed ones and records the new state.
func (w *Watcher) checkForChanges() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := false
	for _, name := range watchedFiles {
		path := filepath.Join(w.config.TokenDir, name)
		info, err := os.Stat(path)

		last, seen := w.lastModTimes[name]
		switch {
		case err != nil && seen:
			// File disappeared.
			delete(w.lastModTimes, name)
			changed = true
		case err == nil && (!seen || info.ModTime().After(last)):
			w.lastModTimes[name] = info.ModTime()
			changed = true
		}
	}
	return changed
}

func (w *Watcher) updateModTimes() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, name := range watchedFiles {
		path := filepath.Join(w.config.TokenDir, name)
		if info, err := os.Stat(path); err == nil {
			w.lastModTimes[name] = info.ModTime()
		}
	}
}

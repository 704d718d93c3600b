package jobdesc

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"airecruiter/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the holder when its file is edited outside the service
type Watcher struct {
	mu sync.Mutex

	holder *Holder
	file   string

	lastModTime time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	logger  *errors.Logger
	running bool
}

// NewWatcher creates a watcher for the holder's file
func NewWatcher(holder *Holder, debounceDelay time.Duration, logger *errors.Logger) (*Watcher, error) {
	if holder.File() == "" {
		return nil, fmt.Errorf("job description watcher needs a file")
	}
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}

	return &Watcher{
		holder:        holder,
		file:          filepath.Clean(holder.File()),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		logger:        logger.With("component", "jobdesc_watcher"),
	}, nil
}

// Start begins watching. The directory is watched as well so atomic
// replacements are seen.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("job description watcher is already running")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(w.file)
	if err := fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	if stat, err := os.Stat(w.file); err == nil {
		w.lastModTime = stat.ModTime()
	}

	w.fsWatcher = fsWatcher
	w.running = true
	go w.watchLoop()

	w.logger.Info("Job description watcher started", "file", w.file, "debounce_delay", w.debounceDelay)
	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.running = false

	if err := w.fsWatcher.Close(); err != nil {
		w.logger.LogError(err, "Failed to close file system watcher")
		return err
	}
	w.logger.Info("Job description watcher stopped")
	return nil
}

// IsRunning returns whether the watcher is currently running
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.shouldProcessEvent(event) {
				w.scheduleReload()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.LogError(err, "File watcher error")

		case <-w.reloadChan:
			if w.hasFileChanged() {
				if err := w.holder.Reload(); err != nil {
					w.logger.LogError(err, "Failed to reload job description", "file", w.file)
				}
			}

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.file {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (w *Watcher) hasFileChanged() bool {
	stat, err := os.Stat(w.file)
	if err != nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if stat.ModTime().Equal(w.lastModTime) {
		return false
	}
	w.lastModTime = stat.ModTime()
	return true
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.reloadChan <- struct{}{}:
		default:
		}
	})
}

// Package watch refreshes live queries when another process writes to the
// database file.
//
// Writes made through this process's store already notify the live hub
// directly. A second process (for example `todos add` while `todos serve`
// is running) only shows up as file system activity on the database file,
// its -wal file or its -journal file. The Watcher turns bursts of that
// activity into a single refresh once the files have been quiet for the
// debounce interval.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RefreshFunc re-runs live queries. live.Hub.RefreshAll satisfies it.
type RefreshFunc func(ctx context.Context) error

// Config holds watcher configuration.
type Config struct {
	// DebounceInterval is how long the database files must be quiet before
	// a refresh runs.
	DebounceInterval time.Duration

	// Logger for watcher messages.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig() Config {
	return Config{
		DebounceInterval: 100 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[watch] ", log.LstdFlags),
	}
}

// Watcher watches a database file and its sidecar files.
type Watcher struct {
	config  Config
	dbPath  string
	names   map[string]bool
	refresh RefreshFunc

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	running bool

	pendingMu sync.Mutex
	pending   bool
	lastEvent time.Time

	refreshes int
}

// New creates a watcher for the database at dbPath. It must be started with
// Start before it does anything.
func New(dbPath string, refresh RefreshFunc, config Config) (*Watcher, error) {
	if refresh == nil {
		return nil, fmt.Errorf("refresh function is required")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultConfig().DebounceInterval
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}

	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	base := filepath.Base(abs)
	return &Watcher{
		config:  config,
		dbPath:  abs,
		refresh: refresh,
		names: map[string]bool{
			base:              true,
			base + "-wal":     true,
			base + "-journal": true,
		},
	}, nil
}

// Start begins watching the database directory. The refresh loop stops when
// ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(w.dbPath)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch database directory %s: %w", dir, err)
	}

	w.watcher = fsw
	w.done = make(chan struct{})
	w.running = true

	w.wg.Add(2)
	go w.processEvents()
	go w.processPendingChanges(ctx)

	w.config.Logger.Printf("Watching %s for external changes", w.dbPath)
	return nil
}

// Stop stops watching and waits for the background goroutines to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)

	err := w.watcher.Close()
	w.wg.Wait()

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// IsRunning returns true if the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Refreshes returns how many refreshes have run.
func (w *Watcher) Refreshes() int {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	return w.refreshes
}

// processEvents queues a refresh for every relevant fsnotify event.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.queueChange()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// relevant reports whether event touches the database or a sidecar file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !w.names[filepath.Base(event.Name)] {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func (w *Watcher) queueChange() {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.pending = true
	w.lastEvent = time.Now()
}

// processPendingChanges runs a refresh once queued changes have been quiet
// for the debounce interval.
func (w *Watcher) processPendingChanges(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.DebounceInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.due() {
				if err := w.refresh(ctx); err != nil {
					w.config.Logger.Printf("Refresh after external change failed: %v", err)
				}
			}
		}
	}
}

// due clears and reports a pending change that has settled.
func (w *Watcher) due() bool {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if !w.pending || time.Since(w.lastEvent) < w.config.DebounceInterval {
		return false
	}
	w.pending = false
	w.refreshes++
	return true
}

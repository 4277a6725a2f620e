package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// ReloadFunc receives the freshly loaded configuration, or the error that
// prevented loading it.
type ReloadFunc func(cfg *Config, err error)

// Watcher reloads a configuration file when it changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors which save by rename are still picked up.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload ReloadFunc

	fsw *fsnotify.Watcher

	mu     sync.Mutex
	timer  *time.Timer
	closed bool

	done    chan struct{}
	wg      sync.WaitGroup
	reloads sync.WaitGroup // pending and running debounce callbacks
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the settle delay before reloading.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher starts watching path and calls onReload after each change.
func NewWatcher(path string, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
		onReload: onReload,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.onReload != nil {
				w.onReload(nil, err)
			}
		}
	}
}

// schedule (re)starts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.stopTimerLocked()
	w.reloads.Add(1)
	w.timer = time.AfterFunc(w.debounce, func() {
		defer w.reloads.Done()
		w.reload()
	})
}

// stopTimerLocked cancels a pending reload. A callback that already fired
// accounts for itself.
func (w *Watcher) stopTimerLocked() {
	if w.timer != nil && w.timer.Stop() {
		w.reloads.Done()
	}
	w.timer = nil
}

func (w *Watcher) reload() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed || w.onReload == nil {
		return
	}

	cfg, err := Load(w.path)
	w.onReload(cfg, err)
}

// Close stops watching and waits for a reload already in progress. It is
// safe to call more than once, but not from the reload callback.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.stopTimerLocked()
	w.mu.Unlock()

	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	w.reloads.Wait()
	return err
}

package manifest

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the default settle window for file change bursts.
const DefaultDebounce = 100 * time.Millisecond

// ReloadFunc receives each successfully reloaded manifest. A reload
// typically builds a fresh registry from the manifest and swaps it in;
// applying a manifest twice to the same registry is an error.
type ReloadFunc func(*Manifest) error

// Watcher reloads a manifest file when it changes on disk.
type Watcher struct {
	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	path   string
	reload ReloadFunc

	debounce time.Duration
	errs     chan error

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the settle window for rapid successive writes, as
// editors that write via rename-and-replace produce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// NewWatcher watches the manifest at path and calls reload after each
// change. The initial load is the caller's responsibility; the watcher
// only reacts to subsequent changes.
func NewWatcher(path string, reload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		path:     absPath,
		reload:   reload,
		debounce: DefaultDebounce,
		errs:     make(chan error, 16),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	// Watch the directory, not the file: editors replace files by rename,
	// which drops a direct file watch.
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Errors returns the channel of reload failures. Errors are dropped when
// the channel is full, so a reader is optional.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.closeCh)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

// loop debounces change events and triggers reloads.
func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-w.closeCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// A fresh timer per event: resetting a fired timer would let
			// its stale tick end the debounce window early.
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerCh = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.reportErr(err)

		case <-timerCh:
			timer = nil
			timerCh = nil
			w.doReload()
		}
	}
}

func (w *Watcher) doReload() {
	m, err := Load(w.path)
	if err != nil {
		w.reportErr(err)
		return
	}
	if err := w.reload(m); err != nil {
		w.reportErr(err)
	}
}

func (w *Watcher) reportErr(err error) {
	select {
	case w.errs <- err:
	default:
		// Drop when nobody is reading.
	}
}

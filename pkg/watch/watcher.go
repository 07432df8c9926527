// Package watch re-lints source files when they change on disk.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/plint/pkg/config"
	"github.com/panbanda/plint/pkg/scanner"
)

// DefaultDebounce is how long a file must stay unchanged before its
// callback runs.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports lintable files under a directory tree once they stop
// changing. Callbacks run one at a time on the goroutine that called Start.
type Watcher struct {
	fs       *fsnotify.Watcher
	cfg      *config.Config
	ignore   *scanner.IgnoreSet
	root     string
	debounce time.Duration

	onChange func(path string)
	onError  func(err error)

	mu     sync.Mutex
	timers map[string]*time.Timer
	ready  chan string
	done   chan struct{}
	stop   sync.Once
}

// NewWatcher creates a watcher for root. A nil cfg uses the defaults and
// a non-positive debounce uses DefaultDebounce. Files skipped by the
// scanner's ignore rules are not reported.
func NewWatcher(root string, cfg *config.Config, debounce time.Duration) (*Watcher, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		fs:       fsw,
		cfg:      cfg,
		ignore:   scanner.NewIgnoreSet(root, cfg),
		root:     root,
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
		ready:    make(chan string, 64),
		done:     make(chan struct{}),
	}, nil
}

// SetCallback sets the function called with each settled file.
func (w *Watcher) SetCallback(fn func(path string)) {
	w.onChange = fn
}

// SetErrorHandler sets the function called with watcher errors.
func (w *Watcher) SetErrorHandler(fn func(err error)) {
	w.onError = fn
}

// Start watches the tree and blocks until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.report(err)
		case path := <-w.ready:
			if w.onChange != nil {
				w.onChange(path)
			}
		}
	}
}

// Stop cancels pending callbacks and releases the underlying watcher.
func (w *Watcher) Stop() error {
	var err error
	w.stop.Do(func() {
		close(w.done)
		w.mu.Lock()
		for path, t := range w.timers {
			t.Stop()
			delete(w.timers, path)
		}
		w.mu.Unlock()
		err = w.fs.Close()
	})
	return err
}

// WatchedDirs returns the watched directories in sorted order.
func (w *Watcher) WatchedDirs() []string {
	dirs := w.fs.WatchList()
	slices.Sort(dirs)
	return dirs
}

// handle follows new directories and schedules writes and creates of
// lintable files.
func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	if ev.Has(fsnotify.Create) && isDir(ev.Name) {
		if err := w.addTree(ev.Name); err != nil {
			w.report(err)
		}
		return
	}
	if w.cfg.ShouldExclude(ev.Name) || !w.cfg.HasExtension(ev.Name) || w.ignore.Match(ev.Name, false) {
		return
	}
	w.schedule(ev.Name)
}

// schedule restarts the quiet period for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.settle(path) })
}

func (w *Watcher) settle(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	w.mu.Unlock()

	select {
	case w.ready <- path:
	case <-w.done:
	}
}

func (w *Watcher) pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers)
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != w.root && (slices.Contains(w.cfg.Exclude.Dirs, d.Name()) || w.ignore.Match(path, true)) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (w *Watcher) report(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}

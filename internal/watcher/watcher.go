// Package watcher reports changes to the files of one flat script
// directory. The fsnotify goroutine only records what changed; the owner
// collects it with Drain on its own goroutine.
package watcher

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/tickscript/internal/logging"
)

// Pending is the mutex-guarded record of changes since the last Drain.
type Pending struct {
	mu       sync.Mutex
	changed  map[string]time.Time
	resync   bool
	resyncAt time.Time
}

func newPending() *Pending {
	return &Pending{changed: make(map[string]time.Time)}
}

// MarkChanged records a content change of filename at t.
func (p *Pending) MarkChanged(filename string, t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed[filename] = t
}

// MarkResync records that the set of files may have changed.
func (p *Pending) MarkResync(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resync = true
	p.resyncAt = t
}

// Take removes and returns entries whose last event is at or before cutoff.
// Later entries stay pending until they settle.
func (p *Pending) Take(cutoff time.Time) (changed []string, resync bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, at := range p.changed {
		if !at.After(cutoff) {
			changed = append(changed, name)
			delete(p.changed, name)
		}
	}
	sort.Strings(changed)

	if p.resync && !p.resyncAt.After(cutoff) {
		resync = true
		p.resync = false
	}
	return changed, resync
}

// Len returns the number of pending changed files.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.changed)
}

// Option configures a DirWatcher.
type Option func(*DirWatcher)

// WithExtension selects which files are reported. Default ".lua".
func WithExtension(ext string) Option {
	return func(w *DirWatcher) {
		if ext != "" {
			w.ext = ext
		}
	}
}

// WithDebounce holds a change back until no further event arrived for d.
func WithDebounce(d time.Duration) Option {
	return func(w *DirWatcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger for watcher errors.
func WithLogger(l *logging.Logger) Option {
	return func(w *DirWatcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *DirWatcher) {
		if now != nil {
			w.now = now
		}
	}
}

// Stats contains watcher counters.
type Stats struct {
	Events  int64
	Ignored int64
	Errors  int64
}

// DirWatcher watches one directory, non-recursively.
type DirWatcher struct {
	dir      string
	ext      string
	debounce time.Duration
	logger   *logging.Logger
	now      func() time.Time

	watcher *fsnotify.Watcher
	pending *Pending

	events  atomic.Int64
	ignored atomic.Int64
	errors  atomic.Int64

	mu       sync.Mutex
	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// New starts watching dir.
func New(dir string, opts ...Option) (*DirWatcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPathNotExist
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, ErrNotDirectory
	}

	w := &DirWatcher{
		dir:     abs,
		ext:     ".lua",
		logger:  logging.NullLogger,
		now:     time.Now,
		pending: newPending(),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(abs); err != nil {
		fsw.Close()
		return nil, err
	}
	w.watcher = fsw

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

// Dir returns the absolute watched directory.
func (w *DirWatcher) Dir() string {
	return w.dir
}

// Drain returns the files whose contents changed and whether the directory
// listing needs a resync, then clears them. Entries younger than the
// debounce interval are kept for a later Drain.
func (w *DirWatcher) Drain() (changed []string, resync bool) {
	return w.pending.Take(w.now().Add(-w.debounce))
}

// Pending exposes the pending set.
func (w *DirWatcher) Pending() *Pending {
	return w.pending
}

// Stats returns watcher counters.
func (w *DirWatcher) Stats() Stats {
	return Stats{
		Events:  w.events.Load(),
		Ignored: w.ignored.Load(),
		Errors:  w.errors.Load(),
	}
}

// Close stops the watcher and waits for its goroutine to exit. Close is
// idempotent.
func (w *DirWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.closedWg.Wait()
	return w.watcher.Close()
}

func (w *DirWatcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.errors.Add(1)
			w.logger.Warn("watch %s: %v", w.dir, err)
			// Events may have been lost; rescan the directory.
			w.pending.MarkResync(w.now())
		}
	}
}

// handle maps one fsnotify event to pending state. Writes mark the file
// changed; creates, removes and renames request a resync. Chmod is ignored.
func (w *DirWatcher) handle(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) == w.dir {
		if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
			w.events.Add(1)
			w.pending.MarkResync(w.now())
		}
		return
	}

	name := filepath.Base(ev.Name)
	if filepath.Dir(filepath.Clean(ev.Name)) != w.dir || !w.Matches(name) {
		w.ignored.Add(1)
		return
	}

	now := w.now()
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.events.Add(1)
		w.pending.MarkResync(now)
		if ev.Has(fsnotify.Create) {
			w.pending.MarkChanged(name, now)
		}
	case ev.Has(fsnotify.Write):
		w.events.Add(1)
		w.pending.MarkChanged(name, now)
	default:
		w.ignored.Add(1)
	}
}

// Matches reports whether filename is a script this watcher reports on.
func (w *DirWatcher) Matches(filename string) bool {
	return MatchesExtension(filename, w.ext)
}

// MatchesExtension reports whether filename is a visible file ending in ext.
func MatchesExtension(filename, ext string) bool {
	if strings.HasPrefix(filename, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(filename), ext) && len(filename) > len(ext)
}

// Package watcher wraps fsnotify with the ready-wait/running/stopped
// lifecycle, per-file event coalescing, and debounced batch delivery the
// store engine's sync pipeline depends on.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Kind is the coalesced event kind for one id.
type Kind string

const (
	KindAdd    Kind = "add"
	KindChange Kind = "change"
	KindUnlink Kind = "unlink"
)

// Callback receives a debounced batch: id -> final coalesced kind. It may
// panic-recover-worthy fail on its own terms; the watcher logs and
// continues rather than propagating.
type Callback func(batch map[string]Kind)

// Options configures acceptance filtering and debounce timing. The set
// of extensions and excluded directories is fixed at construction and
// immutable thereafter.
type Options struct {
	// Extensions is the set of accepted file extensions, e.g. ".md".
	Extensions map[string]bool

	// ExcludedDirs is the set of directory names skipped as path
	// segments, e.g. ".git", "node_modules", ".cache".
	ExcludedDirs map[string]bool

	// DebounceWindow is how long the watcher waits after the last event
	// before flushing the accumulated batch. Default 1000ms.
	DebounceWindow time.Duration
}

// DefaultOptions returns the conventional extension/exclusion set for a
// markdown vault.
func DefaultOptions() Options {
	return Options{
		Extensions: map[string]bool{".md": true},
		ExcludedDirs: map[string]bool{
			".git": true, "node_modules": true, ".cache": true, ".roux": true,
		},
		DebounceWindow: 1000 * time.Millisecond,
	}
}

type watcherState int

const (
	stateInitializing watcherState = iota
	stateRunning
	stateStopped
)

// Watcher is a single filesystem event source rooted at one directory.
type Watcher struct {
	root     string
	opts     Options
	callback Callback
	log      *slog.Logger

	fsw *fsnotify.Watcher

	mu       sync.Mutex
	state    watcherState
	pending  []fsnotify.Event // buffered raw events during ready-wait
	earlyErr error

	queue map[string]Kind
	timer *time.Timer

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a Watcher rooted at root. It does not start watching until
// Start is called.
func New(root string, opts Options, callback Callback, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		root:     root,
		opts:     opts,
		callback: callback,
		log:      log,
		queue:    make(map[string]Kind),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start subscribes to filesystem events, buffers anything that arrives
// during the initial directory walk, then releases the buffer and
// enters the running phase. An error during the walk, or any
// filesystem error observed before the walk completes, aborts Start
// with that failure and leaves the watcher unusable.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	go w.run(ctx)

	walkErr := w.addRecursive(w.root)

	w.mu.Lock()
	if w.earlyErr != nil {
		w.mu.Unlock()
		_ = w.Stop()
		return w.earlyErr
	}
	if walkErr != nil {
		w.mu.Unlock()
		_ = w.Stop()
		return walkErr
	}

	w.state = stateRunning
	buffered := w.pending
	w.pending = nil
	for _, ev := range buffered {
		w.processEventLocked(ev)
	}
	w.mu.Unlock()

	return nil
}

// Stop cancels the notifier and any pending debounce timer. Safe to
// call multiple times, and safe to call from within the Callback.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.state == stateStopped {
		w.mu.Unlock()
		return nil
	}
	w.state = stateStopped
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	<-w.doneCh
	return nil
}

// Flush forces immediate delivery of the current batch, bypassing the
// debounce timer. Used by tests and available for callers who want a
// synchronous drain point.
func (w *Watcher) Flush() {
	w.flush()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.mu.Lock()
			if w.state == stateInitializing {
				w.pending = append(w.pending, ev)
			} else {
				w.processEventLocked(ev)
			}
			w.mu.Unlock()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			initializing := w.state == stateInitializing
			if initializing && w.earlyErr == nil {
				w.earlyErr = err
			}
			w.mu.Unlock()
			if !initializing {
				w.log.Warn("watcher error", "error", err)
			}
		}
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.isExcludedDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) isExcludedDir(name string) bool {
	return w.opts.ExcludedDirs[name]
}

// processEventLocked filters and normalizes a raw fsnotify event, maps
// it to a Kind, and folds it into the pending queue under the
// coalescing rules, (re)arming the debounce timer. Callers must hold
// w.mu.
func (w *Watcher) processEventLocked(ev fsnotify.Event) {
	kind, ok := mapOperation(ev.Op)
	if !ok {
		return
	}

	if !w.accepts(ev.Name) {
		return
	}

	id := w.normalizeID(ev.Name)

	prior, hasPrior := w.queue[id]
	result, keep := coalesce(prior, hasPrior, kind)
	if !keep {
		delete(w.queue, id)
		if len(w.queue) == 0 && w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		return
	}
	w.queue[id] = result
	w.armTimer()
}

func (w *Watcher) accepts(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if !w.opts.Extensions[ext] {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		if w.opts.ExcludedDirs[segment] {
			return false
		}
	}
	return true
}

func (w *Watcher) normalizeID(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	return strings.ToLower(strings.ReplaceAll(filepath.ToSlash(rel), `\`, "/"))
}

// armTimer must be called with w.mu held.
func (w *Watcher) armTimer() {
	window := w.opts.DebounceWindow
	if window <= 0 {
		window = 1000 * time.Millisecond
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(window, w.flush)
}

// flush hands the accumulated batch to the callback and clears the
// queue atomically with the handover.
func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.queue) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.queue
	w.queue = make(map[string]Kind)
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	w.safeCallback(batch)
}

func (w *Watcher) safeCallback(batch map[string]Kind) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("watcher callback panicked", "panic", r)
		}
	}()
	w.callback(batch)
}

func mapOperation(op fsnotify.Op) (Kind, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return KindAdd, true
	case op&fsnotify.Write != 0:
		return KindChange, true
	case op&fsnotify.Remove != 0, op&fsnotify.Rename != 0:
		return KindUnlink, true
	default:
		return "", false
	}
}

// coalesce applies the per-file coalescing table: prior is the queue's
// current kind for an id (if hasPrior), next is the incoming kind. keep
// is false when the combination cancels out entirely (add+unlink).
func coalesce(prior Kind, hasPrior bool, next Kind) (result Kind, keep bool) {
	if !hasPrior {
		return next, true
	}

	switch prior {
	case KindAdd:
		switch next {
		case KindAdd, KindChange:
			return KindAdd, true
		case KindUnlink:
			return "", false
		}
	case KindChange:
		switch next {
		case KindAdd:
			return KindAdd, true
		case KindChange:
			return KindChange, true
		case KindUnlink:
			return KindUnlink, true
		}
	case KindUnlink:
		switch next {
		case KindAdd, KindChange:
			return KindChange, true
		case KindUnlink:
			return KindUnlink, true
		}
	}
	return next, true
}

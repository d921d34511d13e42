// Package watch keeps the index in step with a directory tree.
//
// Created or modified files with a supported extension are re-ingested with
// replace; removed or renamed files have their source removed.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driving"
	"github.com/custodia-labs/docagent/internal/logger"
)

// DefaultDebounce is how long a path must stay quiet before it is applied.
const DefaultDebounce = 300 * time.Millisecond

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("watcher closed")

// ChangeType classifies a filesystem change.
type ChangeType int

const (
	// ChangeUpserted means the file was created or written.
	ChangeUpserted ChangeType = iota

	// ChangeRemoved means the file was removed or renamed away.
	ChangeRemoved
)

// String returns the change name.
func (t ChangeType) String() string {
	switch t {
	case ChangeUpserted:
		return "upsert"
	case ChangeRemoved:
		return "remove"
	default:
		return "unknown"
	}
}

// Change is a relevant filesystem change.
type Change struct {
	Path string
	Type ChangeType
}

// Applied is the outcome of applying one change to the index.
type Applied struct {
	Change Change
	Result domain.MutationResult
	Err    error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a change is applied.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithReporter registers a callback invoked after each applied change.
func WithReporter(fn func(Applied)) Option {
	return func(w *Watcher) {
		w.report = fn
	}
}

// Watcher watches a directory tree and applies changes to the index.
type Watcher struct {
	root     string
	ingest   driving.IngestService
	index    driving.IndexService
	debounce time.Duration
	report   func(Applied)

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	closed  bool
	running bool
}

// New creates a watcher for root.
func New(root string, ingest driving.IngestService, index driving.IndexService, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		ingest:   ingest,
		index:    index,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch starts watching and streams relevant changes until ctx is
// cancelled. Subdirectories created later are watched too.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}
	if w.running {
		return nil, errors.New("watcher already running")
	}

	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := addTree(fsw, w.root); err != nil {
		fsw.Close()
		return nil, err
	}
	w.fsw = fsw
	w.running = true

	changes := make(chan Change)
	go w.loop(ctx, fsw, changes)
	return changes, nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, changes chan<- Change) {
	defer close(changes)
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			change := w.handleFsEvent(fsw, ev)
			if change == nil {
				continue
			}
			select {
			case changes <- *change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch: %v", err)
		}
	}
}

// handleFsEvent maps an fsnotify event to a change, or nil when the event
// is irrelevant. New directories are added to the watch set.
func (w *Watcher) handleFsEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) *Change {
	if isHidden(w.root, ev.Name) {
		return nil
	}

	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if ev.Op.Has(fsnotify.Create) && fsw != nil {
				if err := addTree(fsw, ev.Name); err != nil {
					logger.Warn("watch: %v", err)
				}
			}
			return nil
		}
		if !w.ingest.Supports(ev.Name) {
			return nil
		}
		return &Change{Path: ev.Name, Type: ChangeUpserted}

	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		if !w.ingest.Supports(ev.Name) {
			return nil
		}
		return &Change{Path: ev.Name, Type: ChangeRemoved}
	}
	return nil
}

// Run watches root and applies changes to the index until ctx is
// cancelled. Changes to the same path within the debounce period collapse
// into the last one.
func (w *Watcher) Run(ctx context.Context) error {
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	pending := make(map[string]Change)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case change, ok := <-changes:
			if !ok {
				w.flush(ctx, pending)
				return nil
			}
			pending[change.Path] = change
			timer.Reset(w.debounce)
		case <-timer.C:
			w.flush(ctx, pending)
			pending = make(map[string]Change)
		}
	}
}

func (w *Watcher) flush(ctx context.Context, pending map[string]Change) {
	if len(pending) == 0 {
		return
	}
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if ctx.Err() != nil {
			return
		}
		applied := w.Apply(ctx, pending[p])
		if w.report != nil {
			w.report(applied)
		}
	}
}

// Apply applies one change to the index.
func (w *Watcher) Apply(ctx context.Context, change Change) Applied {
	out := Applied{Change: change}
	switch change.Type {
	case ChangeUpserted:
		out.Result, out.Err = w.ingest.IngestFile(ctx, change.Path, driving.IngestOptions{Replace: true})
	case ChangeRemoved:
		id, err := w.ingest.SourceID(change.Path)
		if err != nil {
			out.Err = err
			break
		}
		out.Result, out.Err = w.index.RemoveDocument(ctx, id)
	}

	if out.Err != nil {
		logger.Warn("watch: %s %s: %v", change.Type, change.Path, out.Err)
	} else {
		logger.Debug("watch: %s %s: %s", change.Type, change.Path, out.Result.Message)
	}
	return out
}

// Close stops watching. It is idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.fsw == nil {
		return nil
	}
	err := w.fsw.Close()
	w.fsw = nil
	return err
}

// addTree watches dir and every non-hidden directory below it.
func addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// isHidden reports whether any element of path below root starts with a dot.
func isHidden(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

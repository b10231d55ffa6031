// Package watcher implements the Session Watcher: a recursive filesystem
// observer that dispatches newly discovered or modified files to the
// Indexing Service without ever blocking its own event loop on ingest work.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	enginelog "github.com/engramhq/engram/pkg/log"
	"github.com/engramhq/engram/pkg/types"
)

// defaultMaxDepth is how many directory levels below a watched root are
// registered and scanned when none is configured.
const defaultMaxDepth = 5

// minMaxDepth is the floor spec.md's "depth >= 3" requirement enforces.
const minMaxDepth = 3

const workQueueSize = 256
const workerCount = 4
const ingestTimeout = 30 * time.Second

// Dispatcher is the narrow surface of indexing.Service the watcher needs.
type Dispatcher interface {
	IngestFile(ctx context.Context, path string, event types.WatchEventType) (bool, error)
}

type workItem struct {
	path string
	typ  types.WatchEventType
}

// Watcher observes a dynamic set of root directories and feeds discovered
// files to a Dispatcher through a bounded worker pool.
type Watcher struct {
	fsw      *fsnotify.Watcher
	dispatch Dispatcher
	maxDepth int

	mu    sync.Mutex
	roots map[string]bool

	workCh chan workItem
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Watcher. maxDepth is clamped to at least 3; 0 selects the
// default of 5.
func New(dispatch Dispatcher, maxDepth int) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	if maxDepth < minMaxDepth {
		maxDepth = minMaxDepth
	}
	return &Watcher{
		fsw:      fsw,
		dispatch: dispatch,
		maxDepth: maxDepth,
		roots:    make(map[string]bool),
		workCh:   make(chan workItem, workQueueSize),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start launches the event loop and worker pool. It returns immediately.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.loop(ctx)

	for i := 0; i < workerCount; i++ {
		w.wg.Add(1)
		go w.worker(ctx)
	}
}

// Stop halts the event loop and worker pool and releases the underlying
// fsnotify watcher.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.fsw.Close()
}

// AddPath registers root for recursive watching. It performs an initial
// scan firing an "add" dispatch for every existing, non-dotfile-filtered
// file found within maxDepth levels of root. The root directory itself is
// always watched even if its own basename begins with a dot (a caller
// adding ".claude" as a root is exactly the expected case).
func (w *Watcher) AddPath(root string) error {
	root = filepath.Clean(root)

	w.mu.Lock()
	w.roots[root] = true
	w.mu.Unlock()

	return w.registerRecursive(root, 0, true)
}

// RemovePath stops watching root and every directory beneath it. Watching
// is removed best-effort: a missing or already-unwatched directory is not
// an error.
func (w *Watcher) RemovePath(root string) error {
	root = filepath.Clean(root)

	w.mu.Lock()
	delete(w.roots, root)
	w.mu.Unlock()

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort unwatch; a broken subtree should not abort the rest
		}
		if d.IsDir() {
			_ = w.fsw.Remove(path)
		}
		return nil
	})
}

func (w *Watcher) registerRecursive(dir string, depth int, isRoot bool) error {
	if depth > w.maxDepth {
		return nil
	}
	if !isRoot && dotFiltered(filepath.Base(dir)) {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if dotFiltered(name) {
			continue
		}
		full := filepath.Join(dir, name)
		if entry.IsDir() {
			if err := w.registerRecursive(full, depth+1, false); err != nil {
				enginelog.WithComponent("watcher").Warn().Err(err).Str("path", full).
					Msg("failed to register subdirectory, continuing scan")
			}
			continue
		}
		w.enqueue(full, types.WatchEventAdd)
	}
	return nil
}

func dotFiltered(basename string) bool {
	return strings.HasPrefix(basename, ".")
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			enginelog.WithComponent("watcher").Warn().Err(err).Msg("fsnotify error")
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if dotFiltered(filepath.Base(ev.Name)) {
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		info, err := os.Stat(ev.Name)
		if err != nil {
			return // file vanished before we could stat it; nothing to dispatch
		}
		if info.IsDir() {
			if err := w.registerRecursive(ev.Name, 1, false); err != nil {
				enginelog.WithComponent("watcher").Warn().Err(err).Str("path", ev.Name).
					Msg("failed to register newly created directory")
			}
			return
		}
		w.enqueue(ev.Name, types.WatchEventAdd)

	case ev.Op&fsnotify.Write != 0:
		info, err := os.Stat(ev.Name)
		if err != nil || info.IsDir() {
			return
		}
		w.enqueue(ev.Name, types.WatchEventChange)
	}
}

// enqueue hands work to the bounded queue without ever blocking the event
// loop: a full queue drops the event rather than stalling fsnotify.
func (w *Watcher) enqueue(path string, typ types.WatchEventType) {
	select {
	case w.workCh <- workItem{path: path, typ: typ}:
	default:
		enginelog.WithComponent("watcher").Warn().Str("path", path).
			Msg("ingest queue full, dropping event")
	}
}

func (w *Watcher) worker(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case item, ok := <-w.workCh:
			if !ok {
				return
			}
			ingestCtx, cancel := context.WithTimeout(ctx, ingestTimeout)
			_, err := w.dispatch.IngestFile(ingestCtx, item.path, item.typ)
			cancel()
			if err != nil {
				enginelog.WithComponent("watcher").Warn().Err(err).Str("path", item.path).
					Msg("ingest failed")
			}
		case <-w.stopCh:
			return
		}
	}
}

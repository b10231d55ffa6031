package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/engramhq/engram/pkg/types"
)

type call struct {
	path string
	typ  types.WatchEventType
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeDispatcher) IngestFile(_ context.Context, path string, event types.WatchEventType) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{path: path, typ: event})
	return true, nil
}

func (f *fakeDispatcher) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]call, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeDispatcher) hasPath(path string) bool {
	for _, c := range f.snapshot() {
		if c.path == path {
			return true
		}
	}
	return false
}

func TestAddPathScansExistingFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	top := filepath.Join(root, "top.jsonl")
	nested := filepath.Join(root, "sub", "nested.jsonl")
	require.NoError(t, os.WriteFile(top, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(nested, []byte("{}"), 0o644))

	disp := &fakeDispatcher{}
	w, err := New(disp, 0)
	require.NoError(t, err)
	w.Start(context.Background())
	t.Cleanup(w.Stop)

	require.NoError(t, w.AddPath(root))

	require.Eventually(t, func() bool {
		return disp.hasPath(top) && disp.hasPath(nested)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAddPathIgnoresDotfileSegments(t *testing.T) {
	root := t.TempDir()
	dotDir := filepath.Join(root, ".git")
	require.NoError(t, os.MkdirAll(dotDir, 0o755))
	ignored := filepath.Join(dotDir, "HEAD")
	require.NoError(t, os.WriteFile(ignored, []byte("ref"), 0o644))

	visible := filepath.Join(root, "visible.jsonl")
	require.NoError(t, os.WriteFile(visible, []byte("{}"), 0o644))

	disp := &fakeDispatcher{}
	w, err := New(disp, 0)
	require.NoError(t, err)
	w.Start(context.Background())
	t.Cleanup(w.Stop)

	require.NoError(t, w.AddPath(root))

	require.Eventually(t, func() bool {
		return disp.hasPath(visible)
	}, 2*time.Second, 10*time.Millisecond)

	require.False(t, disp.hasPath(ignored), "files under a dotfile directory must never be dispatched")
}

func TestAddPathAllowsDotfileRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, ".claude")
	require.NoError(t, os.MkdirAll(root, 0o755))
	file := filepath.Join(root, "session.jsonl")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))

	disp := &fakeDispatcher{}
	w, err := New(disp, 0)
	require.NoError(t, err)
	w.Start(context.Background())
	t.Cleanup(w.Stop)

	require.NoError(t, w.AddPath(root))

	require.Eventually(t, func() bool {
		return disp.hasPath(file)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewClampsMaxDepth(t *testing.T) {
	w, err := New(&fakeDispatcher{}, 1)
	require.NoError(t, err)
	require.Equal(t, minMaxDepth, w.maxDepth)

	w2, err := New(&fakeDispatcher{}, 0)
	require.NoError(t, err)
	require.Equal(t, defaultMaxDepth, w2.maxDepth)
}

func TestLiveCreateEventDispatchesAdd(t *testing.T) {
	root := t.TempDir()
	disp := &fakeDispatcher{}
	w, err := New(disp, 0)
	require.NoError(t, err)
	w.Start(context.Background())
	t.Cleanup(w.Stop)

	require.NoError(t, w.AddPath(root))

	newFile := filepath.Join(root, "created.jsonl")
	require.NoError(t, os.WriteFile(newFile, []byte("{}"), 0o644))

	require.Eventually(t, func() bool {
		return disp.hasPath(newFile)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLiveWriteEventDispatchesChange(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "existing.jsonl")
	require.NoError(t, os.WriteFile(existing, []byte("{}"), 0o644))

	disp := &fakeDispatcher{}
	w, err := New(disp, 0)
	require.NoError(t, err)
	w.Start(context.Background())
	t.Cleanup(w.Stop)

	require.NoError(t, w.AddPath(root))
	require.Eventually(t, func() bool { return disp.hasPath(existing) }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(existing, []byte("{\"updated\":true}"), 0o644))

	require.Eventually(t, func() bool {
		for _, c := range disp.snapshot() {
			if c.path == existing && c.typ == types.WatchEventChange {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRemovePathStopsWatching(t *testing.T) {
	root := t.TempDir()
	disp := &fakeDispatcher{}
	w, err := New(disp, 0)
	require.NoError(t, err)
	w.Start(context.Background())
	t.Cleanup(w.Stop)

	require.NoError(t, w.AddPath(root))
	require.NoError(t, w.RemovePath(root))

	w.mu.Lock()
	_, stillTracked := w.roots[filepath.Clean(root)]
	w.mu.Unlock()
	require.False(t, stillTracked)

	newFile := filepath.Join(root, "after-remove.jsonl")
	require.NoError(t, os.WriteFile(newFile, []byte("{}"), 0o644))

	// No reliable negative wait for "never happens"; give fsnotify a window
	// and assert the removed root produced no late dispatch.
	time.Sleep(200 * time.Millisecond)
	require.False(t, disp.hasPath(newFile))
}

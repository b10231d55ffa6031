package indexing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/engramhq/engram/pkg/events"
	"github.com/engramhq/engram/pkg/memory"
	"github.com/engramhq/engram/pkg/types"
)

type fakeMemoryStore struct {
	bySource map[string]types.Memory
	updated  map[string]string
	creates  int
}

func newFakeMemoryStore() *fakeMemoryStore {
	return &fakeMemoryStore{bySource: map[string]types.Memory{}, updated: map[string]string{}}
}

func (f *fakeMemoryStore) GetBySource(ctx context.Context, source string) (*types.Memory, error) {
	if mem, ok := f.bySource[source]; ok {
		return &mem, nil
	}
	return nil, nil
}

func (f *fakeMemoryStore) Create(ctx context.Context, in memory.CreateInput, vector []float32) (types.Memory, error) {
	f.creates++
	mem := types.Memory{ID: "mem-1", Content: in.Content, Tags: in.Tags, Source: in.Source, Confidence: in.Confidence}
	f.bySource[in.Source] = mem
	return mem, nil
}

func (f *fakeMemoryStore) Update(ctx context.Context, id string, patch memory.UpdatePatch, vector []float32) (*types.Memory, error) {
	if patch.Content != nil {
		f.updated[id] = *patch.Content
	}
	mem := types.Memory{ID: id, Content: *patch.Content}
	return &mem, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func newTestService(t *testing.T, memories MemoryStore) (*Service, *events.Broker) {
	t.Helper()
	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	svc := New([]Parser{ClaudeCodeParser{}, FrontmatterParser{}}, memories, fakeEmbedder{}, nil, broker, nil)
	return svc, broker
}

func writeTempFile(t *testing.T, name string, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ".claude", "projects", "demo")
	require.NoError(t, os.MkdirAll(path, 0o755))
	full := filepath.Join(path, name)
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return full
}

func TestIngestFileCreatesMemoryOnFirstAdd(t *testing.T) {
	mems := newFakeMemoryStore()
	svc, _ := newTestService(t, mems)

	path := writeTempFile(t, "session.jsonl",
		"{\"type\":\"user\",\"cwd\":\"/tmp/demo\",\"message\":{\"role\":\"user\",\"content\":\"hi\"}}\n"+
			"{\"type\":\"assistant\",\"message\":{\"role\":\"assistant\",\"content\":\"hello\"}}\n")

	ok, err := svc.IngestFile(context.Background(), path, types.WatchEventAdd)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, mems.creates)
}

func TestIngestFileDedupesOnSecondAdd(t *testing.T) {
	mems := newFakeMemoryStore()
	svc, _ := newTestService(t, mems)

	path := writeTempFile(t, "session.jsonl",
		"{\"type\":\"user\",\"message\":{\"role\":\"user\",\"content\":\"hi\"}}\n"+
			"{\"type\":\"assistant\",\"message\":{\"role\":\"assistant\",\"content\":\"hello\"}}\n")

	ok, err := svc.IngestFile(context.Background(), path, types.WatchEventAdd)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.IngestFile(context.Background(), path, types.WatchEventAdd)
	require.NoError(t, err)
	require.False(t, ok, "a second add event for an already-indexed source must dedupe")
	require.Equal(t, 1, mems.creates)
}

func TestIngestFileUpdatesOnChange(t *testing.T) {
	mems := newFakeMemoryStore()
	svc, _ := newTestService(t, mems)

	path := writeTempFile(t, "session.jsonl",
		"{\"type\":\"user\",\"message\":{\"role\":\"user\",\"content\":\"hi\"}}\n"+
			"{\"type\":\"assistant\",\"message\":{\"role\":\"assistant\",\"content\":\"hello\"}}\n")

	_, err := svc.IngestFile(context.Background(), path, types.WatchEventAdd)
	require.NoError(t, err)

	err = os.WriteFile(path,
		[]byte("{\"type\":\"user\",\"message\":{\"role\":\"user\",\"content\":\"hi again\"}}\n"+
			"{\"type\":\"assistant\",\"message\":{\"role\":\"assistant\",\"content\":\"hello again\"}}\n"), 0o644)
	require.NoError(t, err)

	ok, err := svc.IngestFile(context.Background(), path, types.WatchEventChange)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, mems.updated, 1)
}

func TestIngestFileSkipsUnrecognizedFile(t *testing.T) {
	mems := newFakeMemoryStore()
	svc, _ := newTestService(t, mems)

	dir := t.TempDir()
	path := filepath.Join(dir, "random.txt")
	require.NoError(t, os.WriteFile(path, []byte("not a session"), 0o644))

	ok, err := svc.IngestFile(context.Background(), path, types.WatchEventAdd)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 0, mems.creates)
}

func TestIngestFileMissingFileEmitsErrorNotPanic(t *testing.T) {
	mems := newFakeMemoryStore()
	svc, _ := newTestService(t, mems)

	ok, err := svc.IngestFile(context.Background(), "/does/not/exist.jsonl", types.WatchEventAdd)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRecentEventsReturnsPublishedEvents(t *testing.T) {
	mems := newFakeMemoryStore()
	svc, _ := newTestService(t, mems)

	path := writeTempFile(t, "session.jsonl",
		"{\"type\":\"user\",\"message\":{\"role\":\"user\",\"content\":\"hi\"}}\n"+
			"{\"type\":\"assistant\",\"message\":{\"role\":\"assistant\",\"content\":\"hello\"}}\n")
	_, err := svc.IngestFile(context.Background(), path, types.WatchEventAdd)
	require.NoError(t, err)

	recent := svc.RecentEvents(10)
	require.NotEmpty(t, recent)
}

// Package indexing turns session and definition files from known AI-tool
// formats into memories: it runs a file through the first matching Parser,
// optionally summarizes it with an LLM, embeds the result, and stores or
// updates a memory whose source is the file's path.
package indexing

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/engramhq/engram/pkg/events"
	enginelog "github.com/engramhq/engram/pkg/log"
	"github.com/engramhq/engram/pkg/memory"
	"github.com/engramhq/engram/pkg/storage"
	"github.com/engramhq/engram/pkg/types"
)

const maxSummarizerMessages = 20
const maxSummarizerMessageChars = 2000

// MemoryStore is the narrow surface of pkg/memory.Store the Indexing
// Service needs. It is satisfied structurally by *memory.Store.
type MemoryStore interface {
	GetBySource(ctx context.Context, source string) (*types.Memory, error)
	Create(ctx context.Context, in memory.CreateInput, vector []float32) (types.Memory, error)
	Update(ctx context.Context, id string, patch memory.UpdatePatch, vector []float32) (*types.Memory, error)
}

// Service runs the ingest pipeline. Summarizer may be nil (basic summaries
// only); db may be nil (indexing_events persistence is skipped).
type Service struct {
	parsers    []Parser
	memories   MemoryStore
	embedder   Embedder
	summarizer Summarizer
	broker     *events.Broker
	db         *storage.DB
}

// New constructs a Service. Parsers are tried in the order given.
func New(parsers []Parser, memories MemoryStore, embedder Embedder, summarizer Summarizer, broker *events.Broker, db *storage.DB) *Service {
	return &Service{
		parsers:    parsers,
		memories:   memories,
		embedder:   embedder,
		summarizer: summarizer,
		broker:     broker,
		db:         db,
	}
}

// IngestFile runs the full ingest contract for one file. It never returns a
// panic to the caller: any parser or store failure is reported as an
// "error" event and a (false, nil) result, matching the "emit error, never
// throw out of the method" rule.
func (s *Service) IngestFile(ctx context.Context, path string, event types.WatchEventType) (ingested bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.emit(types.IndexingEventError, path, fmt.Sprintf("panic: %v", r))
			ingested, err = false, nil
		}
	}()

	s.emit(types.IndexingEventStart, path, "")

	data, readErr := os.ReadFile(path)
	if readErr != nil {
		s.emit(types.IndexingEventError, path, readErr.Error())
		return false, nil
	}

	parser := s.findParser(path)
	if parser == nil {
		s.emit(types.IndexingEventSkipped, path, "no parser matched")
		return false, nil
	}

	parsed, parseErr := parser.Parse(path, data)
	if parseErr != nil {
		s.emit(types.IndexingEventError, path, parseErr.Error())
		return false, nil
	}
	if parsed == nil {
		s.emit(types.IndexingEventSkipped, path, "parser declined the file")
		return false, nil
	}

	parserType := parsed.Metadata["type"]
	s.emit(types.IndexingEventParsed, path, parserType)

	summary := parsed.Summary
	confidence := 0.7
	if s.summarizer != nil && len(parsed.Messages) > 0 {
		if better, sumErr := s.summarizer.Summarize(ctx, lastMessages(parsed.Messages)); sumErr == nil {
			summary = better
			confidence = 0.9
		} else {
			enginelog.WithComponent("indexing").Warn().Err(sumErr).Str("path", path).
				Msg("summarizer failed, falling back to basic summary")
		}
	}

	vector, embedErr := s.embedder.Embed(ctx, summary)
	if embedErr != nil {
		s.emit(types.IndexingEventError, path, embedErr.Error())
		return false, nil
	}
	s.emit(types.IndexingEventEmbedded, path, "")

	existing, lookupErr := s.memories.GetBySource(ctx, path)
	if lookupErr != nil {
		s.emit(types.IndexingEventError, path, lookupErr.Error())
		return false, nil
	}

	if existing != nil {
		if event != types.WatchEventChange {
			s.emit(types.IndexingEventSkipped, path, "already indexed")
			return false, nil
		}
		updated, updateErr := s.memories.Update(ctx, existing.ID, memory.UpdatePatch{Content: &summary}, vector)
		if updateErr != nil {
			s.emit(types.IndexingEventError, path, updateErr.Error())
			return false, nil
		}
		s.emit(types.IndexingEventStored, path, updated.ID)
		return true, nil
	}

	mem, createErr := s.memories.Create(ctx, memory.CreateInput{
		Content:    summary,
		Tags:       []string{"session-index", parserType},
		Source:     path,
		Confidence: confidence,
	}, vector)
	if createErr != nil {
		s.emit(types.IndexingEventError, path, createErr.Error())
		return false, nil
	}
	s.emit(types.IndexingEventStored, path, mem.ID)
	return true, nil
}

// RecentEvents returns up to n of the most recently published indexing
// events, newest last. n is clamped to the broker's 200-event ring.
func (s *Service) RecentEvents(n int) []*types.IndexingEvent {
	recent := s.broker.Recent()
	if n <= 0 || n >= len(recent) {
		return recent
	}
	return recent[len(recent)-n:]
}

func (s *Service) findParser(path string) Parser {
	for _, p := range s.parsers {
		if p.CanParse(path) {
			return p
		}
	}
	return nil
}

func (s *Service) emit(typ types.IndexingEventType, path, detail string) {
	ev := &types.IndexingEvent{Type: typ, Path: path, Detail: detail, Timestamp: time.Now()}
	if s.broker != nil {
		s.broker.Publish(ev)
	}
	s.persistEvent(ev)
}

// persistEvent best-effort inserts into indexing_events; a failure here
// never interrupts the pipeline.
func (s *Service) persistEvent(ev *types.IndexingEvent) {
	if s.db == nil {
		return
	}
	_, _ = s.db.Conn().Exec(
		`INSERT INTO indexing_events(type, path, detail, timestamp) VALUES (?,?,?,?)`,
		string(ev.Type), ev.Path, ev.Detail, ev.Timestamp.UnixMilli(),
	)
}

func lastMessages(messages []Message) []Message {
	start := 0
	if len(messages) > maxSummarizerMessages {
		start = len(messages) - maxSummarizerMessages
	}
	out := make([]Message, len(messages)-start)
	for i, m := range messages[start:] {
		out[i] = Message{Role: m.Role, Content: truncate(m.Content, maxSummarizerMessageChars)}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n])
}

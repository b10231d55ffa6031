package memory

import (
	"context"
	"strings"

	"github.com/engramhq/engram/pkg/engerrors"
	"github.com/engramhq/engram/pkg/storage"
	"github.com/engramhq/engram/pkg/types"
)

// overfetchFactor widens the KNN candidate set before visibility filtering
// is applied, so that a project-scoped search still returns limit hits even
// when some of the nearest neighbors belong to a different project.
const overfetchFactor = 3

// Search runs a KNN lookup against the vector index and applies project-path
// visibility: global memories (source under .claude/plugins/) are always
// visible, project-scoped memories are visible only when opts.ProjectPath
// matches their recorded source prefix.
func (s *Store) Search(ctx context.Context, queryVector []float32, limit int, opts SearchOptions) ([]types.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}
	candidates, err := s.knn(ctx, queryVector, limit*overfetchFactor)
	if err != nil {
		return nil, err
	}

	hits := make([]types.SearchHit, 0, limit)
	for _, c := range candidates {
		mem, err := s.Get(ctx, c.memoryID)
		if err != nil {
			return nil, err
		}
		if mem == nil {
			continue // row raced with a concurrent delete
		}
		if !visibleForProject(mem.Source, opts.ProjectPath) {
			continue
		}
		hits = append(hits, types.SearchHit{Memory: *mem, Distance: c.distance})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

// HybridSearch blends vector proximity with keyword matches: memories whose
// content or tags contain one of keywords are surfaced first, in vector
// order, then the remaining vector-ranked results fill out the page.
func (s *Store) HybridSearch(ctx context.Context, queryVector []float32, keywords []string, limit int) ([]types.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}
	candidates, err := s.knn(ctx, queryVector, limit*2)
	if err != nil {
		return nil, err
	}

	var keyworded, rest []types.SearchHit
	for _, c := range candidates {
		mem, err := s.Get(ctx, c.memoryID)
		if err != nil {
			return nil, err
		}
		if mem == nil {
			continue
		}
		hit := types.SearchHit{Memory: *mem, Distance: c.distance}
		if matchesKeyword(*mem, keywords) {
			keyworded = append(keyworded, hit)
		} else {
			rest = append(rest, hit)
		}
	}

	out := append(keyworded, rest...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type vecCandidate struct {
	memoryID string
	distance float32
}

func (s *Store) knn(ctx context.Context, queryVector []float32, k int) ([]vecCandidate, error) {
	blob, err := storage.SerializeVector(queryVector, s.db.VectorDim)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT memory_id, distance FROM memories_vec WHERE embedding MATCH ? AND k = ? ORDER BY distance`,
		blob, k,
	)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "memory.search", err)
	}
	defer rows.Close()

	var out []vecCandidate
	for rows.Next() {
		var c vecCandidate
		if err := rows.Scan(&c.memoryID, &c.distance); err != nil {
			return nil, engerrors.Wrap(engerrors.StorageError, "memory.search", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// visibleForProject implements the §4.3 visibility rule: memories with no
// source, or a source outside a project's .claude/ tree entirely (a shared
// plugin/skill, a sync-originated memory, anything else), are always
// visible. Only a source that is itself a path under some project's
// .claude/ directory is scoped to that project.
func visibleForProject(source, projectPath string) bool {
	if source == "" {
		return true
	}
	if strings.Contains(source, "/.claude/plugins/") {
		return true
	}
	if !strings.Contains(source, "/.claude/") {
		return true
	}
	if projectPath == "" {
		return true
	}
	return strings.HasPrefix(source, projectPath)
}

func matchesKeyword(mem types.Memory, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	content := strings.ToLower(mem.Content)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(content, kw) {
			return true
		}
		for _, tag := range mem.Tags {
			if strings.Contains(strings.ToLower(tag), kw) {
				return true
			}
		}
	}
	return false
}

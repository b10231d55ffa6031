package main

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/engramhq/engram/pkg/mcp"
)

// hashEmbedder is a reference Embedder standing in for a real embedding
// model runtime: spec.md treats the embedding model as an external
// collaborator and asks only for an interface plus a reference fake. It
// derives a deterministic, L2-normalized pseudo-vector from repeated
// SHA-256 hashing of the input text, so identical text always embeds to
// the same point and distinct text spreads across the sphere, but it
// carries no real semantic meaning.
type hashEmbedder struct {
	dim int
}

func newHashEmbedder(dim int) *hashEmbedder {
	return &hashEmbedder{dim: dim}
}

func (h *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector := make([]float32, h.dim)
	seed := []byte(text)
	block := sha256.Sum256(seed)

	for i := 0; i < h.dim; i++ {
		if i > 0 && i%8 == 0 {
			block = sha256.Sum256(block[:])
		}
		bits := binary.LittleEndian.Uint32(block[(i%8)*4 : (i%8)*4+4])
		vector[i] = float32(bits)/float32(math.MaxUint32)*2 - 1
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vector, nil
	}
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}
	return vector, nil
}

func (h *hashEmbedder) Status() mcp.EmbeddingStatus {
	return mcp.EmbeddingReady
}

package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"lawrag/internal/model"
)

// MemoryIndex is a brute-force cosine-similarity index held in memory.
// It backs tests and small local deployments with the same contract as
// the Qdrant index.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	entries   []model.EmbeddedChunk
}

func NewMemoryIndex(dimension int) *MemoryIndex {
	return &MemoryIndex{dimension: dimension}
}

func (m *MemoryIndex) Insert(_ context.Context, chunks []model.EmbeddedChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		if len(c.Vector) != m.dimension {
			return 0, fmt.Errorf("%w: vector has dimension %d, index expects %d",
				ErrDimensionMismatch, len(c.Vector), m.dimension)
		}
	}
	m.entries = append(m.entries, chunks...)
	return len(chunks), nil
}

func (m *MemoryIndex) Search(_ context.Context, vector []float32, limit int, documentID int64) ([]model.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 10
	}

	results := make([]model.SearchResult, 0, len(m.entries))
	for _, e := range m.entries {
		if documentID > 0 && e.DocumentID != documentID {
			continue
		}
		results = append(results, model.SearchResult{
			DocumentID:      e.DocumentID,
			ChunkIndex:      e.ChunkIndex,
			ChunkPosition:   e.ChunkPosition,
			ChunkText:       e.Text,
			SimilarityScore: cosineSimilarity(vector, e.Vector),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryIndex) DeleteByDocument(_ context.Context, documentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.DocumentID != documentID {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

func (m *MemoryIndex) Stats(context.Context) (model.IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return model.IndexStats{Name: "memory", TotalEntities: int64(len(m.entries))}, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

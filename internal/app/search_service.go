package app

import (
	"context"
	"fmt"
	"strings"

	"lawrag/internal/model"
	"lawrag/internal/vectorindex"
)

// QueryEmbedder embeds a single search query.
type QueryEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// SearchService answers semantic search requests against the index.
type SearchService struct {
	embedder QueryEmbedder
	index    vectorindex.Index
	topK     int
}

func NewSearchService(embedder QueryEmbedder, index vectorindex.Index, topK int) *SearchService {
	if topK <= 0 {
		topK = 5
	}
	return &SearchService{
		embedder: embedder,
		index:    index,
		topK:     topK,
	}
}

// Search returns the most similar chunks. documentID restricts the
// search to one document when positive; limit 0 means the default.
func (s *SearchService) Search(ctx context.Context, query string, limit int, documentID int64) ([]model.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = s.topK
	}

	vector, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	return s.index.Search(ctx, vector, limit, documentID)
}

// Stats exposes the index size for the stats endpoint.
func (s *SearchService) Stats(ctx context.Context) (model.IndexStats, error) {
	return s.index.Stats(ctx)
}

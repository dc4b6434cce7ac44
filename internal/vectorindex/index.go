package vectorindex

import (
	"context"
	"errors"

	"lawrag/internal/model"
)

// ErrDimensionMismatch means the configured embedding dimension does
// not match the existing collection. This is a deployment
// configuration error and is never retried or degraded around.
var ErrDimensionMismatch = errors.New("vector dimension does not match collection")

// Index persists embedded chunks and serves similarity search over
// them. Implementations score by cosine similarity and rank highest
// first; tie order is backend-defined and not stable across calls.
type Index interface {
	// Insert stores the chunks and returns how many were written.
	// Empty input is a no-op returning 0.
	Insert(ctx context.Context, chunks []model.EmbeddedChunk) (int, error)
	// Search returns up to limit results ranked by similarity.
	// documentID > 0 restricts results to that document.
	Search(ctx context.Context, vector []float32, limit int, documentID int64) ([]model.SearchResult, error)
	// DeleteByDocument removes all chunks of a document. Deleting an
	// absent document is a no-op.
	DeleteByDocument(ctx context.Context, documentID int64) error
	Stats(ctx context.Context) (model.IndexStats, error)
}

package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawrag/internal/model"
	"lawrag/internal/vectorindex"
)

type fixedEmbedder struct {
	vector []float32
}

func (f *fixedEmbedder) EmbedOne(context.Context, string) ([]float32, error) {
	return f.vector, nil
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	svc := NewSearchService(&fixedEmbedder{}, vectorindex.NewMemoryIndex(2), 5)
	_, err := svc.Search(context.Background(), "   ", 0, 0)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSearchReturnsRankedResults(t *testing.T) {
	idx := vectorindex.NewMemoryIndex(2)
	_, err := idx.Insert(context.Background(), []model.EmbeddedChunk{
		{Chunk: model.Chunk{DocumentID: 1, ChunkIndex: 0, Text: "第一条"}, Vector: []float32{1, 0}},
		{Chunk: model.Chunk{DocumentID: 2, ChunkIndex: 0, Text: "第二条"}, Vector: []float32{0, 1}},
	})
	require.NoError(t, err)

	svc := NewSearchService(&fixedEmbedder{vector: []float32{1, 0}}, idx, 5)
	results, err := svc.Search(context.Background(), "合同", 0, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "第一条", results[0].ChunkText)
}

func TestSearchDocumentScoped(t *testing.T) {
	idx := vectorindex.NewMemoryIndex(2)
	_, err := idx.Insert(context.Background(), []model.EmbeddedChunk{
		{Chunk: model.Chunk{DocumentID: 1, ChunkIndex: 0, Text: "a"}, Vector: []float32{1, 0}},
		{Chunk: model.Chunk{DocumentID: 2, ChunkIndex: 0, Text: "b"}, Vector: []float32{1, 0}},
	})
	require.NoError(t, err)

	svc := NewSearchService(&fixedEmbedder{vector: []float32{1, 0}}, idx, 5)
	results, err := svc.Search(context.Background(), "合同", 0, 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].DocumentID)
}

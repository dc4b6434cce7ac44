package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"lawrag/internal/model"
	"lawrag/internal/vectorindex"
)

// TextExtractor turns a stored file into plain text.
type TextExtractor interface {
	Extract(path, fileType string) (string, error)
}

// Segmenter splits extracted text into position-labelled chunks.
type Segmenter interface {
	Segment(text string, documentID int64) []model.Chunk
}

// Embedder turns chunk texts into vectors, preserving order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// StatusSink records parse progress for a document. Implementations
// absorb their own failures; a broken status store must not abort an
// otherwise healthy ingestion.
type StatusSink interface {
	Update(ctx context.Context, documentID int64, status string, progress int, errMsg string, vectorCount int)
}

// Pipeline runs the full ingestion of one document: extract, segment,
// embed, index. Each task is terminal; a failed document is marked
// FAILED and needs an explicit re-parse to try again.
type Pipeline struct {
	extractor TextExtractor
	segmenter Segmenter
	embedder  Embedder
	index     vectorindex.Index
	sink      StatusSink
	logger    *zap.SugaredLogger
}

func NewPipeline(extractor TextExtractor, segmenter Segmenter, embedder Embedder, index vectorindex.Index, sink StatusSink, logger *zap.SugaredLogger) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		segmenter: segmenter,
		embedder:  embedder,
		index:     index,
		sink:      sink,
		logger:    logger,
	}
}

// Process ingests one document. Vectors reach the index all at once
// after every batch has embedded, so a mid-run quota failure leaves no
// partial document behind.
func (p *Pipeline) Process(ctx context.Context, task model.ParseTask) error {
	p.sink.Update(ctx, task.DocumentID, model.ParseStatusParsing, 20, "", 0)

	text, err := p.extractor.Extract(task.FilePath, task.FileType)
	if err != nil {
		return p.fail(ctx, task.DocumentID, fmt.Errorf("extract text failed: %w", err))
	}
	if text == "" {
		return p.fail(ctx, task.DocumentID, errors.New("document has no extractable text"))
	}
	p.sink.Update(ctx, task.DocumentID, model.ParseStatusParsing, 40, "", 0)

	chunks := p.segmenter.Segment(text, task.DocumentID)
	if len(chunks) == 0 {
		return p.fail(ctx, task.DocumentID, errors.New("segmentation produced no chunks"))
	}
	p.sink.Update(ctx, task.DocumentID, model.ParseStatusParsing, 60, "", 0)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return p.fail(ctx, task.DocumentID, fmt.Errorf("embed chunks failed: %w", err))
	}

	embedded := make([]model.EmbeddedChunk, len(chunks))
	for i, c := range chunks {
		embedded[i] = model.EmbeddedChunk{Chunk: c, Vector: vectors[i]}
	}
	count, err := p.index.Insert(ctx, embedded)
	if err != nil {
		return p.fail(ctx, task.DocumentID, fmt.Errorf("index chunks failed: %w", err))
	}
	p.sink.Update(ctx, task.DocumentID, model.ParseStatusParsing, 80, "", 0)

	p.sink.Update(ctx, task.DocumentID, model.ParseStatusCompleted, 100, "", count)
	p.logger.Infow("document ingested", "document_id", task.DocumentID, "chunks", len(chunks), "vectors", count)
	return nil
}

func (p *Pipeline) fail(ctx context.Context, documentID int64, err error) error {
	p.logger.Errorw("document ingestion failed", "document_id", documentID, "error", err)
	p.sink.Update(ctx, documentID, model.ParseStatusFailed, 0, err.Error(), 0)
	return err
}

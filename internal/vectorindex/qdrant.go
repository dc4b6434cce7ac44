package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lawrag/internal/model"
)

// QdrantConfig configures the REST connection to a Qdrant collection.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	// ChunkTextLimit caps the stored chunk text, in runes.
	ChunkTextLimit int
	Timeout        time.Duration
}

// QdrantIndex is a minimal REST client to a Qdrant collection using
// cosine distance. If the backend is unreachable at construction the
// index comes up disconnected: Insert becomes a no-op returning 0 and
// Search returns no results, each logged as a warning, so the hosting
// service stays alive for unrelated functionality.
type QdrantIndex struct {
	cfg       QdrantConfig
	client    *http.Client
	logger    *zap.SugaredLogger
	connected bool
}

// NewQdrantIndex attaches to (or creates) the collection. The only
// construction failures are configuration errors such as a dimension
// mismatch with an existing collection; an unreachable backend
// degrades instead of failing.
func NewQdrantIndex(ctx context.Context, cfg QdrantConfig, logger *zap.SugaredLogger) (*QdrantIndex, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("invalid vector dimension %d", cfg.Dimension)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	idx := &QdrantIndex{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}

	if err := idx.ensureCollection(ctx); err != nil {
		if errors.Is(err, ErrDimensionMismatch) {
			return nil, err
		}
		logger.Warnw("vector index unreachable, running disconnected",
			"collection", cfg.Collection, "error", err)
		return idx, nil
	}
	idx.connected = true
	logger.Infow("vector index ready", "collection", cfg.Collection, "dimension", cfg.Dimension)
	return idx, nil
}

// Connected reports whether the backend was reachable at startup.
func (q *QdrantIndex) Connected() bool { return q.connected }

// ensureCollection attaches to an existing collection after checking
// its dimension, or creates it with cosine distance. Creating over an
// equivalent existing collection is treated as attaching.
func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	status, err := q.doJSON(ctx, http.MethodGet, q.collectionPath(""), nil, &info)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		if got := info.Result.Config.Params.Vectors.Size; got != q.cfg.Dimension {
			return fmt.Errorf("%w: collection %q has dimension %d, configured %d",
				ErrDimensionMismatch, q.cfg.Collection, got, q.cfg.Dimension)
		}
		return nil
	}

	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     q.cfg.Dimension,
			"distance": "Cosine",
		},
	}
	status, err = q.doJSON(ctx, http.MethodPut, q.collectionPath(""), body, nil)
	if err != nil {
		return err
	}
	// 409 means the collection appeared concurrently; attach to it.
	if status >= 300 && status != http.StatusConflict {
		return fmt.Errorf("create collection %q failed with status %d", q.cfg.Collection, status)
	}
	return nil
}

func (q *QdrantIndex) Insert(ctx context.Context, chunks []model.EmbeddedChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	if !q.connected {
		q.logger.Warnw("vector index disconnected, dropping insert", "chunks", len(chunks))
		return 0, nil
	}

	points := make([]map[string]interface{}, len(chunks))
	for i, c := range chunks {
		points[i] = map[string]interface{}{
			"id":     pointID(c.DocumentID, c.ChunkIndex),
			"vector": c.Vector,
			"payload": map[string]interface{}{
				"document_id":    c.DocumentID,
				"chunk_index":    c.ChunkIndex,
				"chunk_position": c.ChunkPosition,
				"chunk_text":     truncateRunes(c.Text, q.cfg.ChunkTextLimit),
			},
		}
	}

	status, err := q.doJSON(ctx, http.MethodPut, q.collectionPath("/points?wait=true"),
		map[string]interface{}{"points": points}, nil)
	if err != nil {
		return 0, fmt.Errorf("insert chunks failed: %w", err)
	}
	if status >= 300 {
		return 0, fmt.Errorf("insert chunks rejected with status %d", status)
	}
	return len(chunks), nil
}

func (q *QdrantIndex) Search(ctx context.Context, vector []float32, limit int, documentID int64) ([]model.SearchResult, error) {
	if !q.connected {
		q.logger.Warnw("vector index disconnected, returning no results")
		return []model.SearchResult{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	req := map[string]interface{}{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if documentID > 0 {
		req["filter"] = documentFilter(documentID)
	}

	var resp struct {
		Result []struct {
			Score   float32 `json:"score"`
			Payload struct {
				DocumentID    int64  `json:"document_id"`
				ChunkIndex    int    `json:"chunk_index"`
				ChunkPosition string `json:"chunk_position"`
				ChunkText     string `json:"chunk_text"`
			} `json:"payload"`
		} `json:"result"`
	}
	status, err := q.doJSON(ctx, http.MethodPost, q.collectionPath("/points/search"), req, &resp)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if status >= 300 {
		return nil, fmt.Errorf("search rejected with status %d", status)
	}

	results := make([]model.SearchResult, 0, len(resp.Result))
	for _, hit := range resp.Result {
		results = append(results, model.SearchResult{
			DocumentID:      hit.Payload.DocumentID,
			ChunkIndex:      hit.Payload.ChunkIndex,
			ChunkPosition:   hit.Payload.ChunkPosition,
			ChunkText:       hit.Payload.ChunkText,
			SimilarityScore: hit.Score,
		})
	}
	return results, nil
}

func (q *QdrantIndex) DeleteByDocument(ctx context.Context, documentID int64) error {
	if !q.connected {
		q.logger.Warnw("vector index disconnected, skipping delete", "document_id", documentID)
		return nil
	}

	status, err := q.doJSON(ctx, http.MethodPost, q.collectionPath("/points/delete?wait=true"),
		map[string]interface{}{"filter": documentFilter(documentID)}, nil)
	if err != nil {
		return fmt.Errorf("delete document chunks failed: %w", err)
	}
	if status >= 300 {
		return fmt.Errorf("delete document chunks rejected with status %d", status)
	}
	return nil
}

func (q *QdrantIndex) Stats(ctx context.Context) (model.IndexStats, error) {
	stats := model.IndexStats{Name: q.cfg.Collection}
	if !q.connected {
		return stats, nil
	}

	var resp struct {
		Result struct {
			Count int64 `json:"count"`
		} `json:"result"`
	}
	status, err := q.doJSON(ctx, http.MethodPost, q.collectionPath("/points/count"),
		map[string]interface{}{"exact": true}, &resp)
	if err != nil {
		return stats, fmt.Errorf("count points failed: %w", err)
	}
	if status >= 300 {
		return stats, fmt.Errorf("count points rejected with status %d", status)
	}
	stats.TotalEntities = resp.Result.Count
	return stats, nil
}

func (q *QdrantIndex) collectionPath(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", q.cfg.URL, q.cfg.Collection, suffix)
}

// doJSON sends a request and decodes the response when out is non-nil.
// Transport-level failures return an error; HTTP status is returned
// for the caller to interpret.
func (q *QdrantIndex) doJSON(ctx context.Context, method, url string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal index request failed: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("build index request failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.cfg.APIKey != "" {
		req.Header.Set("api-key", q.cfg.APIKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("index request failed: %w", err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode index response failed: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func documentFilter(documentID int64) map[string]interface{} {
	return map[string]interface{}{
		"must": []map[string]interface{}{
			{
				"key":   "document_id",
				"match": map[string]interface{}{"value": documentID},
			},
		},
	}
}

// pointID derives a stable UUID from the chunk identity so that
// re-ingesting a document overwrites its points instead of
// duplicating them.
func pointID(documentID int64, chunkIndex int) string {
	name := fmt.Sprintf("%d:%d", documentID, chunkIndex)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

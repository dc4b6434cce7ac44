package vectorindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lawrag/internal/model"
)

type fakeQdrant struct {
	existingSize int
	created      bool
	inserted     []map[string]interface{}

	searchRequest map[string]interface{}
}

func (f *fakeQdrant) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/law_test", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if f.existingSize == 0 && !f.created {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			size := f.existingSize
			if size == 0 {
				size = 3
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"result": map[string]interface{}{
					"config": map[string]interface{}{
						"params": map[string]interface{}{
							"vectors": map[string]interface{}{"size": size},
						},
					},
				},
			})
		case http.MethodPut:
			f.created = true
			json.NewEncoder(w).Encode(map[string]interface{}{"result": true})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/collections/law_test/points", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Points []map[string]interface{} `json:"points"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.inserted = append(f.inserted, body.Points...)
		json.NewEncoder(w).Encode(map[string]interface{}{"result": map[string]interface{}{"status": "completed"}})
	})
	mux.HandleFunc("/collections/law_test/points/search", func(w http.ResponseWriter, r *http.Request) {
		f.searchRequest = map[string]interface{}{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.searchRequest))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": []map[string]interface{}{
				{
					"score": 0.93,
					"payload": map[string]interface{}{
						"document_id":    7,
						"chunk_index":    2,
						"chunk_position": "第三条",
						"chunk_text":     "合同自成立时生效",
					},
				},
			},
		})
	})
	mux.HandleFunc("/collections/law_test/points/delete", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"result": map[string]interface{}{"status": "completed"}})
	})
	mux.HandleFunc("/collections/law_test/points/count", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{"count": 42},
		})
	})
	return mux
}

func newTestIndex(t *testing.T, fake *fakeQdrant) *QdrantIndex {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	idx, err := NewQdrantIndex(context.Background(), QdrantConfig{
		URL:            srv.URL,
		Collection:     "law_test",
		Dimension:      3,
		ChunkTextLimit: 5000,
		Timeout:        2 * time.Second,
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	return idx
}

func TestQdrantCreatesMissingCollection(t *testing.T) {
	fake := &fakeQdrant{}
	idx := newTestIndex(t, fake)

	assert.True(t, fake.created)
	assert.True(t, idx.Connected())
}

func TestQdrantAttachesToMatchingCollection(t *testing.T) {
	fake := &fakeQdrant{existingSize: 3}
	idx := newTestIndex(t, fake)

	assert.False(t, fake.created)
	assert.True(t, idx.Connected())
}

func TestQdrantDimensionMismatchFatal(t *testing.T) {
	fake := &fakeQdrant{existingSize: 768}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	_, err := NewQdrantIndex(context.Background(), QdrantConfig{
		URL:        srv.URL,
		Collection: "law_test",
		Dimension:  3,
	}, zap.NewNop().Sugar())
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestQdrantInsertAndSearch(t *testing.T) {
	fake := &fakeQdrant{}
	idx := newTestIndex(t, fake)
	ctx := context.Background()

	n, err := idx.Insert(ctx, []model.EmbeddedChunk{
		{
			Chunk:  model.Chunk{DocumentID: 7, ChunkIndex: 2, ChunkPosition: "第三条", Text: "合同自成立时生效"},
			Vector: []float32{0.1, 0.2, 0.3},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, fake.inserted, 1)
	payload := fake.inserted[0]["payload"].(map[string]interface{})
	assert.Equal(t, "第三条", payload["chunk_position"])
	// same chunk identity always maps to the same point id
	assert.Equal(t, pointID(7, 2), fake.inserted[0]["id"])

	results, err := idx.Search(ctx, []float32{0.1, 0.2, 0.3}, 5, 7)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(7), results[0].DocumentID)
	assert.Equal(t, 2, results[0].ChunkIndex)
	assert.Equal(t, "合同自成立时生效", results[0].ChunkText)
	assert.InDelta(t, 0.93, float64(results[0].SimilarityScore), 1e-6)
	assert.Contains(t, fake.searchRequest, "filter")
}

func TestQdrantSearchWithoutFilter(t *testing.T) {
	fake := &fakeQdrant{}
	idx := newTestIndex(t, fake)

	_, err := idx.Search(context.Background(), []float32{0, 0, 1}, 0, 0)
	require.NoError(t, err)
	assert.NotContains(t, fake.searchRequest, "filter")
	assert.Equal(t, float64(10), fake.searchRequest["limit"])
}

func TestQdrantStats(t *testing.T) {
	fake := &fakeQdrant{}
	idx := newTestIndex(t, fake)

	stats, err := idx.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "law_test", stats.Name)
	assert.Equal(t, int64(42), stats.TotalEntities)
}

func TestQdrantDisconnectedDegradesQuietly(t *testing.T) {
	idx, err := NewQdrantIndex(context.Background(), QdrantConfig{
		URL:        "http://127.0.0.1:1",
		Collection: "law_test",
		Dimension:  3,
		Timeout:    200 * time.Millisecond,
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.False(t, idx.Connected())

	ctx := context.Background()
	n, err := idx.Insert(ctx, []model.EmbeddedChunk{
		{Chunk: model.Chunk{DocumentID: 1}, Vector: []float32{1, 0, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, idx.DeleteByDocument(ctx, 1))

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalEntities)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "法律条", truncateRunes("法律条款文本", 3))
	assert.Equal(t, "short", truncateRunes("short", 100))
	assert.Equal(t, "uncapped", truncateRunes("uncapped", 0))
}

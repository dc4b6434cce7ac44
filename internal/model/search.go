package model

// SearchResult is one ranked hit from the vector index.
type SearchResult struct {
	DocumentID      int64   `json:"document_id"`
	ChunkIndex      int     `json:"chunk_index"`
	ChunkPosition   string  `json:"chunk_position"`
	ChunkText       string  `json:"chunk_text"`
	SimilarityScore float32 `json:"similarity_score"`
	PageNumber      *int    `json:"page_number,omitempty"`
}

// Reference is a search result shaped for answer attribution, with the
// chunk text truncated to a preview.
type Reference struct {
	DocumentID      int64   `json:"document_id"`
	ChunkText       string  `json:"chunk_text"`
	ChunkPosition   string  `json:"chunk_position"`
	SimilarityScore float32 `json:"similarity_score"`
	PageNumber      *int    `json:"page_number,omitempty"`
}

// IndexStats reports the vector index size.
type IndexStats struct {
	Name          string `json:"name"`
	TotalEntities int64  `json:"total_entities"`
}

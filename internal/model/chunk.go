package model

// Chunk is one retrievable unit of a document's text, produced by the
// segmenter. ChunkIndex is 0-based and contiguous within a document;
// ChunkPosition is either a legal marker ("第3条", "第3条-2") or a
// character-range label for fixed-size windows.
type Chunk struct {
	DocumentID    int64  `json:"document_id"`
	ChunkIndex    int    `json:"chunk_index"`
	ChunkPosition string `json:"chunk_position"`
	Text          string `json:"text"`
}

// EmbeddedChunk pairs a chunk with its embedding vector. The vector
// dimension must match the index's configured dimension.
type EmbeddedChunk struct {
	Chunk
	Vector []float32 `json:"-"`
}

package model

// ParseTask is the queue payload that triggers asynchronous ingestion
// of one document.
type ParseTask struct {
	DocumentID int64  `json:"document_id"`
	FilePath   string `json:"file_path"`
	FileType   string `json:"file_type"`
}

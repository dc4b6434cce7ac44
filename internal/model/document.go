package model

import "time"

// Parse lifecycle of an uploaded document. Transitions are
// PENDING -> PARSING -> COMPLETED, or any state -> FAILED.
const (
	ParseStatusPending   = "PENDING"
	ParseStatusParsing   = "PARSING"
	ParseStatusCompleted = "COMPLETED"
	ParseStatusFailed    = "FAILED"
)

// Document is the registry row for one uploaded legal document.
// Its chunks live only in the vector index, keyed by DocumentID.
type Document struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"size:256;not null" json:"title"`
	FileName      string    `gorm:"size:256;not null" json:"file_name"`
	FilePath      string    `gorm:"size:512;not null" json:"file_path"`
	FileType      string    `gorm:"size:16;not null" json:"file_type"`
	FileSize      int64     `json:"file_size"`
	ParseStatus   string    `gorm:"size:16;not null;default:PENDING" json:"parse_status"`
	ParseProgress int       `json:"parse_progress"`
	ParseError    string    `gorm:"type:text" json:"parse_error,omitempty"`
	VectorCount   int       `json:"vector_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

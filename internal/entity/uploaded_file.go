package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// UploadedFile represents a source document for data transfer between layers.
type UploadedFile struct {
	ID          uuid.UUID       `json:"id"`
	SourcePath  string          `json:"source_path"`
	ContentHash []byte          `json:"content_hash"`
	Filename    string          `json:"filename"`
	Format      string          `json:"format"`
	FileSize    int             `json:"file_size"`
	UploadedAt  time.Time       `json:"uploaded_at"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

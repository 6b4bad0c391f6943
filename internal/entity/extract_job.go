package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExtractJob records one run of the ingestion pipeline for diagnostics.
type ExtractJob struct {
	ID            uuid.UUID       `json:"id"`
	Filename      string          `json:"filename"`
	Format        string          `json:"format"`
	DocumentID    *int64          `json:"document_id,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
	Status        string          `json:"status"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	NeedsReview   bool            `json:"needs_review"`
	OCRMethod     *string         `json:"ocr_method,omitempty"`
	Pages         int             `json:"pages"`
	ModelName     *string         `json:"model_name,omitempty"`
	ExtractedJSON json.RawMessage `json:"extracted_json,omitempty"`
}

package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/rx-resolver/constants"
)

// Prescription records one processed document for data transfer between layers.
type Prescription struct {
	ID            uuid.UUID           `json:"id"`
	SourcePath    string              `json:"source_path"`
	FileExt       string              `json:"file_ext"`
	ContentHash   string              `json:"content_hash"`
	Status        constants.JobStatus `json:"status"`
	ExtractedText *string             `json:"extracted_text,omitempty"`
	OCRMethod     *string             `json:"ocr_method,omitempty"`
	Candidates    []string            `json:"medicines_found,omitempty"`
	NameMethod    *string             `json:"name_method,omitempty"`
	Results       json.RawMessage     `json:"results,omitempty"`
	ResultsCount  int                 `json:"results_count"`
	ErrorMessage  *string             `json:"error_message,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

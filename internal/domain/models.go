package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ParseJob tracks one document submitted for rate extraction.
type ParseJob struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	Source       JobSource       `db:"source" json:"source"`
	SourceName   string          `db:"source_name" json:"source_name"`
	HTML         string          `db:"html" json:"-"`
	FileKey      string          `db:"file_key" json:"file_key,omitempty"`
	ContentType  string          `db:"content_type" json:"content_type,omitempty"`
	Strategy     BatchStrategy   `db:"strategy" json:"strategy"`
	Cluster      bool            `db:"cluster" json:"cluster"`
	IncludeText  bool            `db:"include_text" json:"include_text"`
	Status       JobStatus       `db:"status" json:"status"`
	Attempts     int             `db:"attempts" json:"attempts"`
	ErrorMessage string          `db:"error_message" json:"error_message,omitempty"`
	Result       json.RawMessage `db:"result" json:"result,omitempty"`
	Stats        json.RawMessage `db:"stats" json:"stats,omitempty"`
	ModelUsed    string          `db:"model_used" json:"model_used,omitempty"`
	RetryAfter   *time.Time      `db:"retry_after" json:"retry_after,omitempty"`
	CompletedAt  *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// ParseOptions selects how a document is processed.
type ParseOptions struct {
	Strategy    BatchStrategy `json:"strategy"`
	Cluster     bool          `json:"cluster"`
	IncludeText bool          `json:"include_text"`
}

// ParseStats summarises one pipeline run.
type ParseStats struct {
	Tables         int               `json:"tables"`
	TextBlocks     int               `json:"text_blocks"`
	Sections       int               `json:"sections"`
	SectionsByType map[TableType]int `json:"sections_by_type"`
	Batches        int               `json:"batches"`
	FailedBatches  int               `json:"failed_batches"`
	Clustered      bool              `json:"clustered"`
	Strategy       BatchStrategy     `json:"strategy"`
	ElapsedMS      int64             `json:"elapsed_ms"`
}

// ParseOutcome is the full result of processing one document.
type ParseOutcome struct {
	Result    *ExtractionResult `json:"result"`
	Stats     ParseStats        `json:"stats"`
	ModelUsed string            `json:"model_used,omitempty"`
}

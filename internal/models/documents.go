package models

import (
	"time"
)

type AnalysisStatus string

const (
	StatusPending    AnalysisStatus = "pending"
	StatusProcessing AnalysisStatus = "processing"
	StatusCompleted  AnalysisStatus = "completed"
	StatusFailed     AnalysisStatus = "failed"
)

type Document struct {
	ID             string         `json:"id" db:"id"`
	Filename       string         `json:"filename" db:"filename"`
	FileType       string         `json:"file_type" db:"file_type"`
	FileSize       int64          `json:"file_size" db:"file_size"`
	ContentType    string         `json:"content_type" db:"content_type"`
	S3Key          string         `json:"s3_key" db:"s3_key"`
	ContentHash    string         `json:"content_hash" db:"content_hash"`
	Revision       int            `json:"revision" db:"revision"`
	RequiresOCR    bool           `json:"requires_ocr" db:"requires_ocr"`
	AnalysisStatus AnalysisStatus `json:"analysis_status" db:"analysis_status"`
	LastError      *string        `json:"last_error,omitempty" db:"last_error"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
	AnalyzedAt     *time.Time     `json:"analyzed_at,omitempty" db:"analyzed_at"`
}

type UploadRequest struct {
	File        []byte
	Filename    string
	ContentType string
}

type UploadResponse struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	RequiresOCR bool      `json:"requires_ocr"`
	Strategy    string    `json:"strategy"`
	CreatedAt   time.Time `json:"created_at"`
	Message     string    `json:"message"`
}

type DocumentList struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
	Offset    int        `json:"offset"`
	Limit     int        `json:"limit"`
}

type StatusResponse struct {
	DocumentID     string         `json:"document_id"`
	AnalysisStatus AnalysisStatus `json:"analysis_status"`
	LastError      *string        `json:"last_error,omitempty"`
	AnalyzedAt     *time.Time     `json:"analyzed_at,omitempty"`
}

// AnalyzeOutcome is the result of an analyze request.
type AnalyzeOutcome string

const (
	OutcomeAccepted          AnalyzeOutcome = "accepted"
	OutcomeAlreadyProcessing AnalyzeOutcome = "already-processing"
	OutcomeSkippedUnchanged  AnalyzeOutcome = "skipped-unchanged"
)

type AnalyzeResponse struct {
	DocumentID string         `json:"document_id"`
	Status     AnalyzeOutcome `json:"status"`
	RunID      string         `json:"run_id,omitempty"`
}

type CompareRequest struct {
	DocumentID1 string `json:"document_id_1"`
	DocumentID2 string `json:"document_id_2"`
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
)

type Repository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, offset, limit int) ([]models.Document, int, error)
	ReplaceContent(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status models.AnalysisStatus, lastError *string) error
	ResetStuckProcessing(ctx context.Context) (int64, error)

	GetAnalysis(ctx context.Context, documentID string) (*models.Analysis, error)
	// SaveAnalysis replaces the document's analysis and marks it completed
	// in one transaction.
	SaveAnalysis(ctx context.Context, analysis *models.Analysis) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const documentColumns = `id, filename, file_type, file_size, content_type, s3_key, content_hash,
	revision, requires_ocr, analysis_status, last_error, created_at, updated_at, analyzed_at`

func (r *repository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, filename, file_type, file_size, content_type, s3_key, content_hash,
		                       revision, requires_ocr, analysis_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.Filename,
		doc.FileType,
		doc.FileSize,
		doc.ContentType,
		doc.S3Key,
		doc.ContentHash,
		doc.Revision,
		doc.RequiresOCR,
		doc.AnalysisStatus,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	err := r.db.GetContext(ctx, &doc, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NewNotFoundError("document not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (r *repository) List(ctx context.Context, offset, limit int) ([]models.Document, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM documents`); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	docs := []models.Document{}
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &docs, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	return docs, total, nil
}

// ReplaceContent stores new content metadata, bumps the revision and puts the
// document back to pending. The previous analysis is kept.
func (r *repository) ReplaceContent(ctx context.Context, doc *models.Document) error {
	query := `
		UPDATE documents
		SET filename = $2, file_type = $3, file_size = $4, content_type = $5, s3_key = $6,
		    content_hash = $7, requires_ocr = $8, revision = revision + 1,
		    analysis_status = $9, last_error = NULL, updated_at = $10
		WHERE id = $1
		RETURNING revision
	`

	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		doc.ID,
		doc.Filename,
		doc.FileType,
		doc.FileSize,
		doc.ContentType,
		doc.S3Key,
		doc.ContentHash,
		doc.RequiresOCR,
		models.StatusPending,
		now,
	).Scan(&doc.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return utils.NewNotFoundError("document not found")
	}
	if err != nil {
		return fmt.Errorf("replace content: %w", err)
	}
	doc.AnalysisStatus = models.StatusPending
	doc.LastError = nil
	doc.UpdatedAt = now
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.NewNotFoundError("document not found")
	}
	return tx.Commit()
}

func (r *repository) UpdateStatus(ctx context.Context, id string, status models.AnalysisStatus, lastError *string) error {
	query := `
		UPDATE documents
		SET analysis_status = $2, last_error = $3, updated_at = $4
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, id, status, lastError, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.NewNotFoundError("document not found")
	}
	return nil
}

// ResetStuckProcessing moves documents left in processing by a previous
// process back to pending. Only call it before any run has started.
func (r *repository) ResetStuckProcessing(ctx context.Context) (int64, error) {
	query := `
		UPDATE documents
		SET analysis_status = $1, updated_at = $2
		WHERE analysis_status = $3
	`

	res, err := r.db.ExecContext(ctx, query, models.StatusPending, time.Now().UTC(), models.StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("reset stuck documents: %w", err)
	}
	return res.RowsAffected()
}

func (r *repository) GetAnalysis(ctx context.Context, documentID string) (*models.Analysis, error) {
	var payload string
	err := r.db.GetContext(ctx, &payload, `SELECT payload FROM analyses WHERE document_id = $1`, documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NewNotFoundError("analysis not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}

	var analysis models.Analysis
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &analysis, nil
}

func (r *repository) SaveAnalysis(ctx context.Context, analysis *models.Analysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save analysis: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE documents
		SET analysis_status = $2, last_error = NULL, analyzed_at = $3, updated_at = $3
		WHERE id = $1
	`, analysis.DocumentID, models.StatusCompleted, now)
	if err != nil {
		return fmt.Errorf("complete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.NewNotFoundError("document not found")
	}

	upsert := `
		INSERT INTO analyses (document_id, run_id, source_hash, revision, partial, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (document_id) DO UPDATE SET
			run_id = excluded.run_id,
			source_hash = excluded.source_hash,
			revision = excluded.revision,
			partial = excluded.partial,
			payload = excluded.payload,
			created_at = excluded.created_at
	`
	if _, err := tx.ExecContext(ctx, upsert,
		analysis.DocumentID,
		analysis.RunID,
		analysis.SourceHash,
		analysis.Revision,
		analysis.Partial,
		string(payload),
		analysis.CreatedAt,
	); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}

	return tx.Commit()
}

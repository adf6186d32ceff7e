package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/BerylCAtieno/document-intelligence-api/internal/config"
	"github.com/BerylCAtieno/document-intelligence-api/internal/extractor"
	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/repository"
	"github.com/BerylCAtieno/document-intelligence-api/internal/storage"
	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type DocumentService interface {
	UploadDocument(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error)
	ListDocuments(ctx context.Context, offset, limit int) (*models.DocumentList, error)
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetStatus(ctx context.Context, id string) (*models.StatusResponse, error)
	ReplaceContent(ctx context.Context, id string, req *models.UploadRequest) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	AnalyzeDocument(ctx context.Context, id string, force bool) (*models.AnalyzeResponse, error)
}

// FormatRouter decides whether and how a document can be read.
type FormatRouter interface {
	Route(data []byte, filename, declaredType string) (extractor.Route, error)
}

// Jobs is the analysis scheduler.
type Jobs interface {
	Analyze(ctx context.Context, documentID string, force bool) (models.AnalyzeResponse, error)
	Cancel(documentID string) bool
	Wait(ctx context.Context, documentID string) error
	Forget(documentID string)
}

type documentService struct {
	repo        repository.Repository
	storage     storage.Storage
	router      FormatRouter
	jobs        Jobs
	maxFileSize int64
	logger      *utils.Logger
}

func NewService(repo repository.Repository, store storage.Storage, router FormatRouter, jobs Jobs, cfg *config.Config, logger *utils.Logger) DocumentService {
	return &documentService{
		repo:        repo,
		storage:     store,
		router:      router,
		jobs:        jobs,
		maxFileSize: cfg.MaxFileSize,
		logger:      logger,
	}
}

func (s *documentService) UploadDocument(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error) {
	route, err := s.admit(req)
	if err != nil {
		return nil, err
	}

	docID := utils.GenerateID()
	s3Key := objectKey(docID, req.Filename)
	if err := s.storage.Upload(ctx, s3Key, req.File, req.ContentType); err != nil {
		s.logger.Error("Failed to upload to storage", "error", err, "s3_key", s3Key)
		return nil, utils.NewInternalError("Failed to store document")
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:             docID,
		Filename:       req.Filename,
		FileType:       route.Format,
		FileSize:       int64(len(req.File)),
		ContentType:    contentTypeFor(route, req.ContentType),
		S3Key:          s3Key,
		ContentHash:    contentHash(req.File),
		Revision:       1,
		RequiresOCR:    route.RequiresOCR,
		AnalysisStatus: models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		s.logger.Error("Failed to save document to database", "error", err, "doc_id", docID)
		// Attempt to cleanup storage
		_ = s.storage.Delete(ctx, s3Key)
		return nil, utils.NewInternalError("Failed to save document metadata")
	}

	s.logger.Info("Document uploaded successfully",
		"id", docID,
		"filename", req.Filename,
		"file_type", route.Format,
		"strategy", route.Strategy,
		"size", humanize.Bytes(uint64(doc.FileSize)))

	return &models.UploadResponse{
		ID:          docID,
		Filename:    req.Filename,
		FileSize:    doc.FileSize,
		ContentType: doc.ContentType,
		RequiresOCR: route.RequiresOCR,
		Strategy:    string(route.Strategy),
		CreatedAt:   now,
		Message:     "Document uploaded successfully. Use /documents/{id}/analyze to analyze it.",
	}, nil
}

// admit validates an upload and routes it. Empty files are accepted; they
// fail at extraction like any other unreadable content.
func (s *documentService) admit(req *models.UploadRequest) (extractor.Route, error) {
	if req.Filename == "" {
		return extractor.Route{}, utils.NewBadRequestError("Filename is required")
	}
	if int64(len(req.File)) > s.maxFileSize {
		return extractor.Route{}, utils.NewBadRequestError(
			fmt.Sprintf("File size exceeds %s limit", humanize.Bytes(uint64(s.maxFileSize))))
	}
	route, err := s.router.Route(req.File, req.Filename, req.ContentType)
	if err != nil {
		s.logger.Warn("Unsupported document", "filename", req.Filename, "content_type", req.ContentType)
		return extractor.Route{}, utils.MapError(err)
	}
	return route, nil
}

func (s *documentService) ListDocuments(ctx context.Context, offset, limit int) (*models.DocumentList, error) {
	if offset < 0 {
		return nil, utils.NewBadRequestError("offset must not be negative")
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	docs, total, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		s.logger.Error("Failed to list documents", "error", err)
		return nil, utils.NewInternalError("Failed to list documents")
	}
	return &models.DocumentList{Documents: docs, Total: total, Offset: offset, Limit: limit}, nil
}

func (s *documentService) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError("get document", id, err)
	}
	return doc, nil
}

func (s *documentService) GetStatus(ctx context.Context, id string) (*models.StatusResponse, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.StatusResponse{
		DocumentID:     doc.ID,
		AnalysisStatus: doc.AnalysisStatus,
		LastError:      doc.LastError,
		AnalyzedAt:     doc.AnalyzedAt,
	}, nil
}

// ReplaceContent swaps in new bytes for an existing document. Any running
// analysis of the old content is cancelled first; the stored analysis stays
// until the next run.
func (s *documentService) ReplaceContent(ctx context.Context, id string, req *models.UploadRequest) (*models.Document, error) {
	current, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	route, err := s.admit(req)
	if err != nil {
		return nil, err
	}

	if s.jobs.Cancel(id) {
		s.logger.Info("Cancelled running analysis for replaced content", "id", id)
		_ = s.jobs.Wait(ctx, id)
	}

	s3Key := objectKey(id, req.Filename)
	if err := s.storage.Upload(ctx, s3Key, req.File, req.ContentType); err != nil {
		s.logger.Error("Failed to upload to storage", "error", err, "s3_key", s3Key)
		return nil, utils.NewInternalError("Failed to store document")
	}

	doc := *current
	doc.Filename = req.Filename
	doc.FileType = route.Format
	doc.FileSize = int64(len(req.File))
	doc.ContentType = contentTypeFor(route, req.ContentType)
	doc.S3Key = s3Key
	doc.ContentHash = contentHash(req.File)
	doc.RequiresOCR = route.RequiresOCR
	if err := s.repo.ReplaceContent(ctx, &doc); err != nil {
		return nil, s.lookupError("replace content", id, err)
	}
	if current.S3Key != s3Key {
		if err := s.storage.Delete(ctx, current.S3Key); err != nil {
			s.logger.Warn("Failed to delete previous content", "error", err, "s3_key", current.S3Key)
		}
	}

	s.logger.Info("Document content replaced", "id", id, "revision", doc.Revision,
		"changed", doc.ContentHash != current.ContentHash)
	return &doc, nil
}

// DeleteDocument cancels any running analysis, then removes the document,
// its analysis and its stored bytes.
func (s *documentService) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	if s.jobs.Cancel(id) {
		if err := s.jobs.Wait(ctx, id); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("Cancelled run ended with error", "id", id, "error", err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.lookupError("delete document", id, err)
	}
	s.jobs.Forget(id)
	if err := s.storage.Delete(ctx, doc.S3Key); err != nil {
		s.logger.Warn("Failed to delete stored content", "error", err, "s3_key", doc.S3Key)
	}

	s.logger.Info("Document deleted", "id", id)
	return nil
}

func (s *documentService) AnalyzeDocument(ctx context.Context, id string, force bool) (*models.AnalyzeResponse, error) {
	resp, err := s.jobs.Analyze(ctx, id, force)
	if err != nil {
		return nil, s.lookupError("analyze document", id, err)
	}
	s.logger.Info("Analyze requested", "id", id, "force", force, "outcome", resp.Status, "run_id", resp.RunID)
	return &resp, nil
}

// lookupError passes tagged errors through and hides the rest.
func (s *documentService) lookupError(op, id string, err error) error {
	if utils.KindOf(err) != utils.KindInternal {
		return err
	}
	s.logger.Error("Document operation failed", "op", op, "id", id, "error", err)
	return utils.NewInternalError(fmt.Sprintf("Failed to %s", op))
}

func objectKey(id, filename string) string {
	return fmt.Sprintf("documents/%s/%s", id, path.Base(filename))
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// contentTypeFor prefers the canonical type of the routed format.
func contentTypeFor(route extractor.Route, declared string) string {
	if route.MIMEType != "" {
		return route.MIMEType
	}
	return declared
}

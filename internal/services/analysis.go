package services

import (
	"context"
	"errors"

	"github.com/BerylCAtieno/document-intelligence-api/internal/graph"
	"github.com/BerylCAtieno/document-intelligence-api/internal/insights"
	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/report"
	"github.com/BerylCAtieno/document-intelligence-api/internal/repository"
	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
)

const (
	DefaultCentralEntities = 10
	MaxNetworkDepth        = 5
)

// AnalysisService answers queries over stored analyses. Every method that
// takes a document id returns NotFound when the document has no analysis,
// and StillProcessing when the first analysis is still running.
type AnalysisService interface {
	GetAnalysis(ctx context.Context, id string) (*models.Analysis, error)
	GetEntities(ctx context.Context, id, entityType string) (*models.EntityCollection, *models.Analysis, error)
	GetCentralEntities(ctx context.Context, id string, topN int) ([]models.CentralEntity, *models.Analysis, error)
	GetEntityNetwork(ctx context.Context, id, entity string, depth int) (*models.EntityNetwork, *models.Analysis, error)
	Compare(ctx context.Context, id1, id2 string) (*models.Comparison, error)
	ExportReport(ctx context.Context, id, format string) ([]byte, string, error)
}

type analysisService struct {
	repo   repository.Repository
	logger *utils.Logger
}

func NewAnalysisService(repo repository.Repository, logger *utils.Logger) AnalysisService {
	return &analysisService{repo: repo, logger: logger}
}

func (s *analysisService) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	a, err := s.repo.GetAnalysis(ctx, id)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, utils.ErrNotFound) {
		s.logger.Error("Failed to load analysis", "error", err, "id", id)
		return nil, utils.NewInternalError("Failed to retrieve analysis")
	}

	doc, derr := s.repo.GetByID(ctx, id)
	if derr != nil {
		if errors.Is(derr, utils.ErrNotFound) {
			return nil, derr
		}
		return nil, utils.NewInternalError("Failed to retrieve document")
	}
	switch doc.AnalysisStatus {
	case models.StatusProcessing:
		return nil, utils.NewConflictError(utils.KindStillProcessing, "Analysis is still processing")
	case models.StatusFailed:
		msg := "No analysis available: the last run failed"
		if doc.LastError != nil {
			msg += ": " + *doc.LastError
		}
		return nil, utils.NewNotFoundError(msg)
	default:
		return nil, utils.NewNotFoundError("Document has not been analyzed yet")
	}
}

func (s *analysisService) GetEntities(ctx context.Context, id, entityType string) (*models.EntityCollection, *models.Analysis, error) {
	a, err := s.GetAnalysis(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	coll := a.Entities
	if entityType != "" {
		coll = coll.Filter(entityType)
	}
	return &coll, a, nil
}

func (s *analysisService) GetCentralEntities(ctx context.Context, id string, topN int) ([]models.CentralEntity, *models.Analysis, error) {
	a, err := s.GetAnalysis(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if topN <= 0 {
		topN = DefaultCentralEntities
	}
	return graph.Central(a.KnowledgeGraph, topN), a, nil
}

func (s *analysisService) GetEntityNetwork(ctx context.Context, id, entity string, depth int) (*models.EntityNetwork, *models.Analysis, error) {
	if entity == "" {
		return nil, nil, utils.NewBadRequestError("entity is required")
	}
	if depth > MaxNetworkDepth {
		return nil, nil, utils.NewBadRequestError("depth must be at most 5")
	}
	a, err := s.GetAnalysis(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	net, ok := graph.Neighbors(a.KnowledgeGraph, entity, depth)
	if !ok {
		return nil, nil, utils.NewNotFoundError("Entity not found in knowledge graph")
	}
	return &net, a, nil
}

func (s *analysisService) Compare(ctx context.Context, id1, id2 string) (*models.Comparison, error) {
	if id1 == "" || id2 == "" {
		return nil, utils.NewBadRequestError("document_id_1 and document_id_2 are required")
	}
	a, err := s.GetAnalysis(ctx, id1)
	if err != nil {
		return nil, err
	}
	b, err := s.GetAnalysis(ctx, id2)
	if err != nil {
		return nil, err
	}
	c := insights.Compare(a, b)
	return &c, nil
}

// ExportReport renders the analysis and returns the body with its content
// type.
func (s *analysisService) ExportReport(ctx context.Context, id, format string) ([]byte, string, error) {
	f, err := report.ParseFormat(format)
	if err != nil {
		return nil, "", utils.MapError(err)
	}
	a, err := s.GetAnalysis(ctx, id)
	if err != nil {
		return nil, "", err
	}
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	body, err := report.Render(doc, a, f)
	if err != nil {
		s.logger.Error("Failed to render report", "error", err, "id", id, "format", f)
		return nil, "", utils.NewInternalError("Failed to render report")
	}
	return body, f.ContentType(), nil
}

package repository

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
)

// cachedRepository keeps recently read analyses in memory. Analyses are
// immutable once saved, so entries only drop on save or delete.
type cachedRepository struct {
	Repository
	analyses *lru.Cache[string, *models.Analysis]
}

// NewCachedRepository wraps inner with an LRU of size analyses. Callers get
// shared pointers and must not modify them.
func NewCachedRepository(inner Repository, size int) (Repository, error) {
	cache, err := lru.New[string, *models.Analysis](size)
	if err != nil {
		return nil, err
	}
	return &cachedRepository{Repository: inner, analyses: cache}, nil
}

func (c *cachedRepository) GetAnalysis(ctx context.Context, documentID string) (*models.Analysis, error) {
	if a, ok := c.analyses.Get(documentID); ok {
		return a, nil
	}
	a, err := c.Repository.GetAnalysis(ctx, documentID)
	if err != nil {
		return nil, err
	}
	c.analyses.Add(documentID, a)
	return a, nil
}

func (c *cachedRepository) SaveAnalysis(ctx context.Context, analysis *models.Analysis) error {
	c.analyses.Remove(analysis.DocumentID)
	if err := c.Repository.SaveAnalysis(ctx, analysis); err != nil {
		return err
	}
	c.analyses.Remove(analysis.DocumentID)
	return nil
}

func (c *cachedRepository) Delete(ctx context.Context, id string) error {
	err := c.Repository.Delete(ctx, id)
	c.analyses.Remove(id)
	return err
}

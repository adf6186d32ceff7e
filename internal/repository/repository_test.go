package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/document-intelligence-api/internal/db"
	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
)

func newTestRepository(t *testing.T) Repository {
	t.Helper()
	conn, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.RunMigrations(conn))
	return NewRepository(conn)
}

func newDocument(id string, created time.Time) *models.Document {
	return &models.Document{
		ID:             id,
		Filename:       id + ".txt",
		FileType:       "txt",
		FileSize:       12,
		ContentType:    "text/plain",
		S3Key:          "documents/" + id + ".txt",
		ContentHash:    "hash-" + id,
		Revision:       1,
		AnalysisStatus: models.StatusPending,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func TestCreateAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.Create(ctx, newDocument("a", now)))

	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.Filename)
	assert.Equal(t, "hash-a", got.ContentHash)
	assert.Equal(t, 1, got.Revision)
	assert.Equal(t, models.StatusPending, got.AnalysisStatus)
	assert.Nil(t, got.LastError)
	assert.Nil(t, got.AnalyzedAt)
	assert.True(t, now.Equal(got.CreatedAt))

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, newDocument(id, base.Add(time.Duration(i)*time.Minute))))
	}

	docs, total, err := repo.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, docs, 2)
	assert.Equal(t, "c", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)

	docs, _, err = repo.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].ID)
}

func TestStatusTransitionsAndReset(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newDocument("a", time.Now().UTC())))
	require.NoError(t, repo.Create(ctx, newDocument("b", time.Now().UTC())))

	require.NoError(t, repo.UpdateStatus(ctx, "a", models.StatusProcessing, nil))
	msg := "extraction failed"
	require.NoError(t, repo.UpdateStatus(ctx, "b", models.StatusFailed, &msg))

	got, err := repo.GetByID(ctx, "b")
	require.NoError(t, err)
	require.NotNil(t, got.LastError)
	assert.Equal(t, msg, *got.LastError)

	n, err := repo.ResetStuckProcessing(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	got, err = repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.AnalysisStatus)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", models.StatusFailed, nil), utils.ErrNotFound)
}

func TestSaveAnalysisCompletesDocument(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newDocument("a", time.Now().UTC())))

	_, err := repo.GetAnalysis(ctx, "a")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	first := &models.Analysis{DocumentID: "a", RunID: "r1", SourceHash: "hash-a", Revision: 1,
		Classification: models.ClassificationResult{Category: "invoice", Confidence: 0.9}}
	require.NoError(t, repo.SaveAnalysis(ctx, first))

	doc, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, doc.AnalysisStatus)
	assert.NotNil(t, doc.AnalyzedAt)

	second := &models.Analysis{DocumentID: "a", RunID: "r2", SourceHash: "hash-a", Revision: 1, Partial: true}
	require.NoError(t, repo.SaveAnalysis(ctx, second))

	got, err := repo.GetAnalysis(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "r2", got.RunID)
	assert.True(t, got.Partial)
	assert.Empty(t, got.Classification.Category)

	err = repo.SaveAnalysis(ctx, &models.Analysis{DocumentID: "missing"})
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestReplaceContentBumpsRevision(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newDocument("a", time.Now().UTC())))
	require.NoError(t, repo.SaveAnalysis(ctx, &models.Analysis{DocumentID: "a", RunID: "r1", SourceHash: "hash-a", Revision: 1}))

	doc := newDocument("a", time.Now().UTC())
	doc.ContentHash = "hash-a2"
	doc.Filename = "a-v2.txt"
	require.NoError(t, repo.ReplaceContent(ctx, doc))
	assert.Equal(t, 2, doc.Revision)

	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Revision)
	assert.Equal(t, "hash-a2", got.ContentHash)
	assert.Equal(t, "a-v2.txt", got.Filename)
	assert.Equal(t, models.StatusPending, got.AnalysisStatus)

	// the old analysis stays until the next run
	a, err := repo.GetAnalysis(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "hash-a", a.SourceHash)

	assert.ErrorIs(t, repo.ReplaceContent(ctx, newDocument("missing", time.Now())), utils.ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newDocument("a", time.Now().UTC())))
	require.NoError(t, repo.SaveAnalysis(ctx, &models.Analysis{DocumentID: "a", RunID: "r1"}))

	require.NoError(t, repo.Delete(ctx, "a"))
	_, err := repo.GetByID(ctx, "a")
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = repo.GetAnalysis(ctx, "a")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, "a"), utils.ErrNotFound)
}

type countingRepository struct {
	Repository
	reads int
}

func (c *countingRepository) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	c.reads++
	return c.Repository.GetAnalysis(ctx, id)
}

func TestCachedRepository(t *testing.T) {
	inner := &countingRepository{Repository: newTestRepository(t)}
	repo, err := NewCachedRepository(inner, 8)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newDocument("a", time.Now().UTC())))
	require.NoError(t, repo.SaveAnalysis(ctx, &models.Analysis{DocumentID: "a", RunID: "r1"}))

	for n := 0; n < 3; n++ {
		a, err := repo.GetAnalysis(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "r1", a.RunID)
	}
	assert.Equal(t, 1, inner.reads)

	require.NoError(t, repo.SaveAnalysis(ctx, &models.Analysis{DocumentID: "a", RunID: "r2"}))
	a, err := repo.GetAnalysis(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "r2", a.RunID)
	assert.Equal(t, 2, inner.reads)

	require.NoError(t, repo.Delete(ctx, "a"))
	_, err = repo.GetAnalysis(ctx, "a")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = NewCachedRepository(inner, 0)
	assert.Error(t, err)
}

package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/document-intelligence-api/internal/config"
	"github.com/BerylCAtieno/document-intelligence-api/internal/db"
	"github.com/BerylCAtieno/document-intelligence-api/internal/extractor"
	"github.com/BerylCAtieno/document-intelligence-api/internal/jobs"
	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/nlp"
	"github.com/BerylCAtieno/document-intelligence-api/internal/pipeline"
	"github.com/BerylCAtieno/document-intelligence-api/internal/repository"
	"github.com/BerylCAtieno/document-intelligence-api/internal/services"
	"github.com/BerylCAtieno/document-intelligence-api/internal/storage"
	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
)

const invoiceText = `INVOICE
Invoice Number: INV-2024-001
Bill to: Acme Corp, Nairobi
Alice Wanjiru approved the invoice on March 3, 2024.
Amount due: $1,200.00 by April 2, 2024.
Payment terms are net 30. Thank you for the excellent service.
`

type testServer struct {
	handler http.Handler
	jobs    *jobs.Coordinator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := utils.NewNopLogger()
	cfg := &config.Config{MaxFileSize: 1 << 20}

	conn, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.RunMigrations(conn))

	repo, err := repository.NewCachedRepository(repository.NewRepository(conn), 16)
	require.NoError(t, err)
	store := storage.NewMemoryStorage()
	formats := extractor.NewRouter(extractor.DefaultRouterOptions())
	p := pipeline.New(formats, extractor.New(nil, nil, extractor.DefaultOptions(), logger),
		pipeline.DefaultStages(nlp.DefaultLexicon()), pipeline.DefaultOptions(), logger)
	coord := jobs.NewCoordinator(repo, store, p, jobs.Options{Workers: 2, RunTimeout: 30 * time.Second}, logger)
	t.Cleanup(func() { _ = coord.Shutdown(context.Background()) })

	docs := services.NewService(repo, store, formats, coord, cfg, logger)
	analyses := services.NewAnalysisService(repo, logger)
	return &testServer{handler: NewRouter(docs, analyses, cfg.MaxFileSize, logger), jobs: coord}
}

func (s *testServer) do(t *testing.T, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, method, target, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return s.do(t, method, target, buf.Bytes(), mw.FormDataContentType())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type section[T any] struct {
	DocumentID     string   `json:"document_id"`
	Partial        bool     `json:"partial"`
	DegradedStages []string `json:"degraded_stages"`
	Data           T        `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *testServer) uploadAndAnalyze(t *testing.T, filename, content string) string {
	t.Helper()
	rec := s.upload(t, http.MethodPost, "/api/v1/documents/upload", filename, content)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[models.UploadResponse](t, rec).ID

	rec = s.do(t, http.MethodPost, "/api/v1/documents/"+id+"/analyze", nil, "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, models.OutcomeAccepted, decode[models.AnalyzeResponse](t, rec).Status)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.jobs.Wait(ctx, id))
	return id
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestAnalyzeLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.upload(t, http.MethodPost, "/api/v1/documents/upload", "invoice.txt", invoiceText)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[models.UploadResponse](t, rec).ID

	rec = s.do(t, http.MethodGet, "/api/v1/documents/"+id+"/analysis", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, utils.KindNotFound, decode[errorResponse](t, rec).Kind)

	rec = s.do(t, http.MethodPost, "/api/v1/documents/"+id+"/analyze", nil, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NoError(t, s.jobs.Wait(context.Background(), id))

	rec = s.do(t, http.MethodGet, "/api/v1/documents/"+id+"/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusCompleted, decode[models.StatusResponse](t, rec).AnalysisStatus)

	rec = s.do(t, http.MethodPost, "/api/v1/documents/"+id+"/analyze", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.OutcomeSkippedUnchanged, decode[models.AnalyzeResponse](t, rec).Status)

	rec = s.do(t, http.MethodPost, "/api/v1/documents/"+id+"/analyze?force=true", nil, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NoError(t, s.jobs.Wait(context.Background(), id))

	rec = s.do(t, http.MethodPost, "/api/v1/documents/"+id+"/analyze?force=maybe", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/documents/"+id+"/analysis", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	a := decode[models.Analysis](t, rec)
	assert.Equal(t, id, a.DocumentID)
	assert.Equal(t, "invoice", a.Classification.Category)
}

func TestAnalysisSections(t *testing.T) {
	s := newTestServer(t)
	id := s.uploadAndAnalyze(t, "invoice.txt", invoiceText)
	base := "/api/v1/documents/" + id

	rec := s.do(t, http.MethodGet, base+"/entities?type=DATE", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	entities := decode[section[models.EntityCollection]](t, rec)
	assert.Equal(t, id, entities.DocumentID)
	assert.False(t, entities.Partial)
	assert.NotNil(t, entities.DegradedStages)
	require.NotEmpty(t, entities.Data.Entities)
	for _, e := range entities.Data.Entities {
		assert.Equal(t, models.EntityDate, e.Type)
	}

	rec = s.do(t, http.MethodGet, base+"/sentiment", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[section[models.SentimentResult]](t, rec).Data.OverallSentiment)

	rec = s.do(t, http.MethodGet, base+"/knowledge-graph", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	kg := decode[section[models.KnowledgeGraph]](t, rec).Data
	assert.Equal(t, len(kg.Nodes), kg.Statistics.TotalNodes)

	rec = s.do(t, http.MethodGet, base+"/knowledge-graph/central?top=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.LessOrEqual(t, len(decode[section[[]models.CentralEntity]](t, rec).Data), 1)

	if len(kg.Nodes) > 0 {
		q := url.Values{"entity": {kg.Nodes[0].Label}, "depth": {"2"}}
		rec = s.do(t, http.MethodGet, base+"/knowledge-graph/neighbors?"+q.Encode(), nil, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 2, decode[section[models.EntityNetwork]](t, rec).Data.Depth)
	}

	rec = s.do(t, http.MethodGet, base+"/knowledge-graph/neighbors", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, base+"/timeline", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	timeline := decode[section[[]models.TimelineEvent]](t, rec).Data
	require.NotEmpty(t, timeline)
	assert.Equal(t, "2024-03-03", timeline[0].CalendarValue)

	rec = s.do(t, http.MethodGet, base+"/insights", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[section[models.Insights]](t, rec).Data.Summary, "invoice")
}

func TestExportReport(t *testing.T) {
	s := newTestServer(t)
	id := s.uploadAndAnalyze(t, "invoice.txt", invoiceText)

	rec := s.do(t, http.MethodGet, "/api/v1/documents/"+id+"/report?format=markdown", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "# Analysis Report: invoice.txt")

	rec = s.do(t, http.MethodGet, "/api/v1/documents/"+id+"/report", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = s.do(t, http.MethodGet, "/api/v1/documents/"+id+"/report?format=pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.upload(t, http.MethodPost, "/api/v1/documents/upload", "setup.exe", "MZ\x90\x00\x03")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, utils.KindUnsupportedFormat, decode[errorResponse](t, rec).Kind)

	rec = s.do(t, http.MethodPost, "/api/v1/documents/upload", []byte("plain"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmptyDocumentFailsExtraction(t *testing.T) {
	s := newTestServer(t)

	rec := s.upload(t, http.MethodPost, "/api/v1/documents/upload", "empty.txt", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[models.UploadResponse](t, rec).ID

	rec = s.do(t, http.MethodPost, "/api/v1/documents/"+id+"/analyze", nil, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	err := s.jobs.Wait(context.Background(), id)
	assert.ErrorIs(t, err, utils.ErrExtractionFailed)

	rec = s.do(t, http.MethodGet, "/api/v1/documents/"+id+"/status", nil, "")
	status := decode[models.StatusResponse](t, rec)
	assert.Equal(t, models.StatusFailed, status.AnalysisStatus)
	require.NotNil(t, status.LastError)

	rec = s.do(t, http.MethodGet, "/api/v1/documents/"+id+"/analysis", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentManagement(t *testing.T) {
	s := newTestServer(t)
	id := s.uploadAndAnalyze(t, "invoice.txt", invoiceText)

	rec := s.do(t, http.MethodGet, "/api/v1/documents?limit=5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[models.DocumentList](t, rec)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 5, list.Limit)

	rec = s.do(t, http.MethodGet, "/api/v1/documents?limit=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.upload(t, http.MethodPut, "/api/v1/documents/"+id+"/content", "invoice.txt", invoiceText+"\nRevised.\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc := decode[models.Document](t, rec)
	assert.Equal(t, 2, doc.Revision)
	assert.Equal(t, models.StatusPending, doc.AnalysisStatus)

	// the previous analysis stays readable until the next run
	rec = s.do(t, http.MethodGet, "/api/v1/documents/"+id+"/analysis", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/documents/"+id+"/analyze", nil, "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.NoError(t, s.jobs.Wait(context.Background(), id))

	rec = s.do(t, http.MethodDelete, "/api/v1/documents/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/documents/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/documents/"+id+"/analysis", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompare(t *testing.T) {
	s := newTestServer(t)
	a := s.uploadAndAnalyze(t, "a.txt", invoiceText)
	b := s.uploadAndAnalyze(t, "b.txt", "Mary Njeri visited Paris in June 2023. The trip was wonderful.")

	body, _ := json.Marshal(models.CompareRequest{DocumentID1: a, DocumentID2: b})
	rec := s.do(t, http.MethodPost, "/api/v1/compare", body, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cmp := decode[models.Comparison](t, rec)
	assert.Equal(t, a, cmp.DocumentID1)
	assert.NotEmpty(t, cmp.Differences)
	assert.NotEmpty(t, cmp.UniqueToFirst)

	rec = s.do(t, http.MethodPost, "/api/v1/compare", []byte("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
)

func TestUploadSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/documents/upload", r.URL.Path)
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "notes.txt", header.Filename)
		assert.Equal(t, "hello", string(data))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.UploadResponse{ID: "doc-1", Filename: header.Filename})
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/v1/", nil)
	resp, err := c.Upload(context.Background(), "/tmp/notes.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "doc-1", resp.ID)
}

func TestAnalyzeAndQueries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/documents/doc-1/analyze":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "true", r.URL.Query().Get("force"))
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(models.AnalyzeResponse{DocumentID: "doc-1", Status: models.OutcomeAccepted})
		case "/documents/doc-1/entities":
			assert.Equal(t, "ORG", r.URL.Query().Get("type"))
			_, _ = w.Write([]byte(`{"document_id":"doc-1","partial":true,"degraded_stages":["sentiment"],"data":{"total_entities":1}}`))
		case "/documents/doc-1/report":
			assert.Equal(t, "markdown", r.URL.Query().Get("format"))
			w.Header().Set("Content-Type", "text/markdown")
			_, _ = w.Write([]byte("# Analysis Report"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := New(srv.URL, srv.Client())
	ctx := context.Background()

	resp, err := c.Analyze(ctx, "doc-1", true)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAccepted, resp.Status)

	ents, err := c.Entities(ctx, "doc-1", "ORG")
	require.NoError(t, err)
	assert.True(t, ents.Partial)
	assert.Equal(t, []string{"sentiment"}, ents.DegradedStages)
	assert.Equal(t, 1, ents.Data.TotalEntities)

	body, err := c.Report(ctx, "doc-1", "markdown")
	require.NoError(t, err)
	assert.Equal(t, "# Analysis Report", string(body))
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"Analysis is still processing","kind":"still_processing"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Analysis(context.Background(), "doc-1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "still_processing", apiErr.Kind)
	assert.Equal(t, "Analysis is still processing (still_processing, HTTP 409)", apiErr.Error())
}

func TestPollerWithClient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := models.StatusProcessing
		if calls.Add(1) >= 2 {
			status = models.StatusCompleted
		}
		_ = json.NewEncoder(w).Encode(models.StatusResponse{DocumentID: "doc-1", AnalysisStatus: status})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	out, err := NewPoller(c.Status, 1, 5).Poll(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, out.State)
	assert.Equal(t, 2, out.Attempts)
}

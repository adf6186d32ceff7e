// Package client talks to the document intelligence HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode     int
	Kind           string
	Message        string
	DegradedStages []string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s (%s, HTTP %d)", e.Message, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the API rooted at baseURL, for example
// http://localhost:8080/api/v1.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Upload sends a document under the given filename.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (*models.UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var resp models.UploadResponse
	if err := c.do(ctx, http.MethodPost, "/documents/upload", mw.FormDataContentType(), &buf, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Analyze(ctx context.Context, id string, force bool) (*models.AnalyzeResponse, error) {
	path := "/documents/" + url.PathEscape(id) + "/analyze"
	if force {
		path += "?force=true"
	}
	var resp models.AnalyzeResponse
	if err := c.do(ctx, http.MethodPost, path, "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Status(ctx context.Context, id string) (*models.StatusResponse, error) {
	var resp models.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(id)+"/status", "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Analysis(ctx context.Context, id string) (*models.Analysis, error) {
	var resp models.Analysis
	if err := c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(id)+"/analysis", "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EntitiesResponse is the entities section with its run state.
type EntitiesResponse struct {
	DocumentID     string                  `json:"document_id"`
	Partial        bool                    `json:"partial"`
	DegradedStages []string                `json:"degraded_stages"`
	Data           models.EntityCollection `json:"data"`
}

func (c *Client) Entities(ctx context.Context, id, entityType string) (*EntitiesResponse, error) {
	path := "/documents/" + url.PathEscape(id) + "/entities"
	if entityType != "" {
		path += "?" + url.Values{"type": {entityType}}.Encode()
	}
	var resp EntitiesResponse
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Report returns the rendered report body.
func (c *Client) Report(ctx context.Context, id, format string) ([]byte, error) {
	path := "/documents/" + url.PathEscape(id) + "/report"
	if format != "" {
		path += "?" + url.Values{"format": {format}}.Encode()
	}
	var body bytes.Buffer
	if err := c.do(ctx, http.MethodGet, path, "", nil, &body); err != nil {
		return nil, err
	}
	return body.Bytes(), nil
}

// do performs the request and decodes a JSON body into out. A *bytes.Buffer
// out receives the raw body instead.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if buf, ok := out.(*bytes.Buffer); ok {
		_, err := io.Copy(buf, resp.Body)
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error          string   `json:"error"`
		Kind           string   `json:"kind"`
		DegradedStages []string `json:"degraded_stages"`
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Kind = body.Kind
		apiErr.DegradedStages = body.DegradedStages
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

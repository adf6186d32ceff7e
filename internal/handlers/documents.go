package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/services"
	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
)

// multipartOverhead is the slack allowed on top of the file size for the
// multipart envelope.
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	service     services.DocumentService
	maxFileSize int64
	logger      *utils.Logger
}

func NewDocumentHandler(service services.DocumentService, maxFileSize int64, logger *utils.Logger) *DocumentHandler {
	return &DocumentHandler{
		service:     service,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	req, err := h.readUpload(w, r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	resp, err := h.service.UploadDocument(r.Context(), req)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}
	respondJSON(h.logger, w, http.StatusCreated, resp)
}

func (h *DocumentHandler) ReplaceContent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	req, err := h.readUpload(w, r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	doc, err := h.service.ReplaceContent(r.Context(), id, req)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, doc)
}

// readUpload pulls the "file" part out of a multipart request, enforcing
// the configured size limit.
func (h *DocumentHandler) readUpload(w http.ResponseWriter, r *http.Request) (*models.UploadRequest, error) {
	tooLarge := utils.NewBadRequestError(
		fmt.Sprintf("File size exceeds %s limit", humanize.Bytes(uint64(h.maxFileSize))))

	if r.ContentLength > h.maxFileSize+multipartOverhead {
		return nil, tooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, tooLarge
		}
		return nil, utils.NewBadRequestError("Invalid form data")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, utils.NewBadRequestError("No file provided")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		return nil, utils.NewInternalError("Failed to read file")
	}
	if int64(len(data)) > h.maxFileSize {
		return nil, tooLarge
	}

	h.logger.Info("File upload attempt",
		"filename", header.Filename,
		"reported_content_type", header.Header.Get("Content-Type"),
		"size", humanize.Bytes(uint64(len(data))))

	return &models.UploadRequest{
		File:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}

func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}
	limit, err := queryInt(r, "limit", services.DefaultPageSize)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	list, err := h.service.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, list)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.GetDocument(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(h.logger, w, err)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, doc)
}

func (h *DocumentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.GetStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(h.logger, w, err)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, status)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteDocument(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(h.logger, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AnalyzeDocument answers 202 when a run was started and 200 when the
// request was absorbed by an existing run or an unchanged analysis.
func (h *DocumentHandler) AnalyzeDocument(w http.ResponseWriter, r *http.Request) {
	force, err := queryBool(r, "force")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	resp, err := h.service.AnalyzeDocument(r.Context(), mux.Vars(r)["id"], force)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	status := http.StatusOK
	if resp.Status == models.OutcomeAccepted {
		status = http.StatusAccepted
	}
	respondJSON(h.logger, w, status, resp)
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/services"
	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
)

// sectionResponse carries one part of an analysis together with the
// degradation state of the run that produced it.
type sectionResponse struct {
	DocumentID     string   `json:"document_id"`
	Partial        bool     `json:"partial"`
	DegradedStages []string `json:"degraded_stages"`
	Data           any      `json:"data"`
}

func section(a *models.Analysis, data any) sectionResponse {
	stages := a.DegradedStages
	if stages == nil {
		stages = []string{}
	}
	return sectionResponse{
		DocumentID:     a.DocumentID,
		Partial:        a.Partial,
		DegradedStages: stages,
		Data:           data,
	}
}

type AnalysisHandler struct {
	service services.AnalysisService
	logger  *utils.Logger
}

func NewAnalysisHandler(service services.AnalysisService, logger *utils.Logger) *AnalysisHandler {
	return &AnalysisHandler{service: service, logger: logger}
}

func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.GetAnalysis(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(h.logger, w, err)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, a)
}

func (h *AnalysisHandler) GetEntities(w http.ResponseWriter, r *http.Request) {
	coll, a, err := h.service.GetEntities(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("type"))
	if err != nil {
		respondError(h.logger, w, err)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, section(a, coll))
}

// sectionHandler serves a single field of the stored analysis.
func (h *AnalysisHandler) sectionHandler(pick func(*models.Analysis) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := h.service.GetAnalysis(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			respondError(h.logger, w, err)
			return
		}
		respondJSON(h.logger, w, http.StatusOK, section(a, pick(a)))
	}
}

func (h *AnalysisHandler) GetSentiment(w http.ResponseWriter, r *http.Request) {
	h.sectionHandler(func(a *models.Analysis) any { return a.Sentiment })(w, r)
}

func (h *AnalysisHandler) GetKnowledgeGraph(w http.ResponseWriter, r *http.Request) {
	h.sectionHandler(func(a *models.Analysis) any { return a.KnowledgeGraph })(w, r)
}

func (h *AnalysisHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	h.sectionHandler(func(a *models.Analysis) any { return a.Timeline })(w, r)
}

func (h *AnalysisHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	h.sectionHandler(func(a *models.Analysis) any { return a.Insights })(w, r)
}

func (h *AnalysisHandler) GetCentralEntities(w http.ResponseWriter, r *http.Request) {
	top, err := queryInt(r, "top", services.DefaultCentralEntities)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}
	central, a, err := h.service.GetCentralEntities(r.Context(), mux.Vars(r)["id"], top)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, section(a, central))
}

func (h *AnalysisHandler) GetEntityNetwork(w http.ResponseWriter, r *http.Request) {
	depth, err := queryInt(r, "depth", 1)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}
	network, a, err := h.service.GetEntityNetwork(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("entity"), depth)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, section(a, network))
}

func (h *AnalysisHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	body, contentType, err := h.service.ExportReport(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("format"))
	if err != nil {
		respondError(h.logger, w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.Error("Failed to write report", "error", err)
	}
}

func (h *AnalysisHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req models.CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(h.logger, w, utils.NewBadRequestError("Invalid JSON body"))
		return
	}
	cmp, err := h.service.Compare(r.Context(), req.DocumentID1, req.DocumentID2)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, cmp)
}

package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/document-intelligence-api/internal/handlers"
	"github.com/BerylCAtieno/document-intelligence-api/internal/middleware"
	"github.com/BerylCAtieno/document-intelligence-api/internal/services"
	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
)

func NewRouter(docService services.DocumentService, analysisService services.AnalysisService, maxFileSize int64, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery(logger))

	docHandler := handlers.NewDocumentHandler(docService, maxFileSize, logger)
	analysisHandler := handlers.NewAnalysisHandler(analysisService, logger)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	// Document endpoints
	api.HandleFunc("/documents/upload", docHandler.UploadDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents", docHandler.ListDocuments).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}", docHandler.GetDocument).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}", docHandler.DeleteDocument).Methods(http.MethodDelete)
	api.HandleFunc("/documents/{id}/content", docHandler.ReplaceContent).Methods(http.MethodPut)
	api.HandleFunc("/documents/{id}/status", docHandler.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/analyze", docHandler.AnalyzeDocument).Methods(http.MethodPost)

	// Analysis endpoints
	api.HandleFunc("/documents/{id}/analysis", analysisHandler.GetAnalysis).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/entities", analysisHandler.GetEntities).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/sentiment", analysisHandler.GetSentiment).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/knowledge-graph", analysisHandler.GetKnowledgeGraph).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/knowledge-graph/central", analysisHandler.GetCentralEntities).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/knowledge-graph/neighbors", analysisHandler.GetEntityNetwork).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/timeline", analysisHandler.GetTimeline).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/insights", analysisHandler.GetInsights).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/report", analysisHandler.ExportReport).Methods(http.MethodGet)
	api.HandleFunc("/compare", analysisHandler.Compare).Methods(http.MethodPost)

	return r
}

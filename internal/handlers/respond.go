package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
)

type errorBody struct {
	Error          string   `json:"error"`
	Kind           string   `json:"kind"`
	DegradedStages []string `json:"degraded_stages,omitempty"`
}

func respondJSON(logger *utils.Logger, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

func respondError(logger *utils.Logger, w http.ResponseWriter, err error) {
	appErr := utils.MapError(err)

	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.Error("Request error", "status", appErr.StatusCode, "kind", appErr.Kind, "error", err)
	} else {
		logger.Warn("Request error", "status", appErr.StatusCode, "kind", appErr.Kind, "error", appErr.Message)
	}

	respondJSON(logger, w, appErr.StatusCode, errorBody{
		Error:          appErr.Message,
		Kind:           appErr.Kind,
		DegradedStages: appErr.DegradedStages,
	})
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, utils.NewBadRequestError(name + " must be an integer")
	}
	return n, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, utils.NewBadRequestError(name + " must be true or false")
	}
	return b, nil
}

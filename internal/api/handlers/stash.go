package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/amaumene/mediastash/internal/models"
	"github.com/amaumene/mediastash/internal/pipeline"
	"github.com/sirupsen/logrus"
)

// StashHandler accepts ingestion requests
type StashHandler struct {
	pipeline *pipeline.Pipeline
	logger   *logrus.Logger
}

// NewStashHandler creates a new stash handler
func NewStashHandler(p *pipeline.Pipeline, logger *logrus.Logger) *StashHandler {
	return &StashHandler{
		pipeline: p,
		logger:   logger,
	}
}

// StashRequest is the ingestion request payload
type StashRequest struct {
	Reference     string `json:"reference"`
	RequestedType string `json:"requested_type"`
}

// StashResponse is the ingestion response payload
type StashResponse struct {
	ID string `json:"id"`
}

// ServeHTTP handles POST /api/stash
func (h *StashHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req StashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Error("Failed to decode stash payload")
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	requested, ok := parseRequestedType(req.RequestedType)
	if !ok {
		http.Error(w, "requested_type must be auto, audio or video", http.StatusBadRequest)
		return
	}

	id, err := h.pipeline.Submit(req.Reference, requested)
	if err != nil {
		h.logger.WithError(err).WithField("reference", req.Reference).Warn("Submission rejected")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(StashResponse{ID: id})
}

// parseRequestedType maps the wire value to a RequestedType; an empty
// value means auto
func parseRequestedType(value string) (models.RequestedType, bool) {
	switch value {
	case "", "auto":
		return models.RequestedTypeAuto, true
	case "audio":
		return models.RequestedTypeAudio, true
	case "video":
		return models.RequestedTypeVideo, true
	default:
		return "", false
	}
}

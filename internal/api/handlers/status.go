package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/amaumene/mediastash/internal/models"
	"github.com/sirupsen/logrus"
)

// StatusHandler handles status requests
type StatusHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:     db,
		logger: logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	TotalItems  int            `json:"total_items"`
	Prefetching int            `json:"prefetching"`
	Downloading int            `json:"downloading"`
	Processing  int            `json:"processing"`
	Ready       int            `json:"ready"`
	Error       int            `json:"error"`
	ItemsByType map[string]int `json:"items_by_type"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	items, err := h.db.GetAllItems()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get items")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		TotalItems:  len(items),
		ItemsByType: make(map[string]int),
	}

	for _, item := range items {
		switch item.Status {
		case models.StatusPrefetching:
			response.Prefetching++
		case models.StatusDownloading:
			response.Downloading++
		case models.StatusProcessing:
			response.Processing++
		case models.StatusReady:
			response.Ready++
		case models.StatusError:
			response.Error++
		}

		if item.ResolvedType != "" {
			response.ItemsByType[string(item.ResolvedType)]++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

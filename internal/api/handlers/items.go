package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/amaumene/mediastash/internal/models"
	"github.com/sirupsen/logrus"
)

// ItemsHandler serves media item read models
type ItemsHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewItemsHandler creates a new items handler
func NewItemsHandler(db *models.Database, logger *logrus.Logger) *ItemsHandler {
	return &ItemsHandler{
		db:     db,
		logger: logger,
	}
}

// ItemResponse is the wire representation of a media item
type ItemResponse struct {
	ID              string     `json:"id"`
	Slug            string     `json:"slug"`
	SourceReference string     `json:"source_reference"`
	RequestedType   string     `json:"requested_type"`
	ResolvedType    string     `json:"resolved_type,omitempty"`
	Status          string     `json:"status"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	Title           string     `json:"title,omitempty"`
	Author          string     `json:"author,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
	ContentPath     string     `json:"content_path,omitempty"`
	ThumbnailPath   string     `json:"thumbnail_path,omitempty"`
	SubtitlePath    string     `json:"subtitle_path,omitempty"`
	FileSize        int64      `json:"file_size,omitempty"`
	MimeType        string     `json:"mime_type,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DownloadedAt    *time.Time `json:"downloaded_at,omitempty"`
}

func toItemResponse(item *models.MediaItem) ItemResponse {
	return ItemResponse{
		ID:              item.ID,
		Slug:            item.Slug,
		SourceReference: item.SourceReference,
		RequestedType:   string(item.RequestedType),
		ResolvedType:    string(item.ResolvedType),
		Status:          string(item.Status),
		ErrorMessage:    item.ErrorMessage,
		Title:           item.Title,
		Author:          item.Author,
		DurationSeconds: item.DurationSeconds,
		ContentPath:     item.ContentPath,
		ThumbnailPath:   item.ThumbnailPath,
		SubtitlePath:    item.SubtitlePath,
		FileSize:        item.FileSize,
		MimeType:        item.MimeType,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
		DownloadedAt:    item.DownloadedAt,
	}
}

// ServeHTTP handles GET /api/items and GET /api/items/{id}
func (h *ItemsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/items"), "/")
	if id == "" {
		h.listItems(w)
		return
	}
	h.getItem(w, id)
}

func (h *ItemsHandler) listItems(w http.ResponseWriter) {
	items, err := h.db.GetAllItems()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list items")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toItemResponse(item))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *ItemsHandler) getItem(w http.ResponseWriter, id string) {
	item, err := h.db.GetItemByID(id)
	if err != nil {
		if models.IsNotFound(err) {
			http.Error(w, "Item not found", http.StatusNotFound)
			return
		}
		h.logger.WithError(err).Error("Failed to get item")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toItemResponse(item))
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amaumene/mediastash/internal/api/handlers"
	"github.com/amaumene/mediastash/internal/api/middleware"
	"github.com/amaumene/mediastash/internal/config"
	"github.com/amaumene/mediastash/internal/models"
	"github.com/amaumene/mediastash/internal/pipeline"
	"github.com/sirupsen/logrus"
)

// Server represents the HTTP server
type Server struct {
	server   *http.Server
	db       *models.Database
	pipeline *pipeline.Pipeline
	logger   *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, db *models.Database, p *pipeline.Pipeline, logger *logrus.Logger) *Server {
	s := &Server{
		db:       db,
		pipeline: p,
		logger:   logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Health check
	healthHandler := handlers.NewHealthHandler(s.db, s.logger)
	mux.HandleFunc("/health", healthHandler.ServeHTTP)

	// Status summary
	statusHandler := handlers.NewStatusHandler(s.db, s.logger)
	mux.HandleFunc("/status", statusHandler.ServeHTTP)

	// Ingestion entry point
	stashHandler := handlers.NewStashHandler(s.pipeline, s.logger)
	mux.HandleFunc("/api/stash", stashHandler.ServeHTTP)

	// Item read models
	itemsHandler := handlers.NewItemsHandler(s.db, s.logger)
	mux.HandleFunc("/api/items", itemsHandler.ServeHTTP)
	mux.HandleFunc("/api/items/", itemsHandler.ServeHTTP)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

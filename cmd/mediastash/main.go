package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amaumene/mediastash/internal/api"
	"github.com/amaumene/mediastash/internal/config"
	"github.com/amaumene/mediastash/internal/controllers"
	"github.com/amaumene/mediastash/internal/models"
	"github.com/amaumene/mediastash/internal/pipeline"
	"github.com/amaumene/mediastash/internal/scheduler"
	"github.com/amaumene/mediastash/internal/services/ffmpeg"
	"github.com/amaumene/mediastash/internal/services/htmlmedia"
	"github.com/amaumene/mediastash/internal/services/ytdlp"
	"github.com/amaumene/mediastash/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting Mediastash")
	logger.WithField("media_dir", cfg.MediaDir).Info("Configuration loaded")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	// 4. Load blocklist
	blocklist, err := utils.LoadBlocklist(cfg.BlocklistFile)
	if err != nil {
		logger.WithError(err).Warn("Failed to load blocklist, continuing without it")
		blocklist = &utils.Blocklist{}
	} else {
		logger.Info("Blocklist loaded")
	}

	// 5. Initialize tool clients
	extractor, err := ytdlp.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize yt-dlp client: %w", err)
	}
	logger.Info("yt-dlp client initialized")

	transcoder, err := ffmpeg.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize ffmpeg client: %w", err)
	}
	logger.Info("ffmpeg client initialized")

	scanner := htmlmedia.NewClient(logger)

	// 6. Initialize controllers
	prefetchCtrl := controllers.NewPrefetchController(extractor, scanner, logger)
	identityCtrl := controllers.NewIdentityController(db, cfg, logger)
	downloadCtrl := controllers.NewDownloadController(extractor, logger)
	processCtrl := controllers.NewProcessController(transcoder, cfg, logger)
	logger.Info("Controllers initialized")

	// 7. Initialize pipeline
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipe := pipeline.NewPipeline(cfg, db, prefetchCtrl, identityCtrl, downloadCtrl, processCtrl, blocklist, logger)
	pipe.Start(ctx)
	defer pipe.Stop()

	// 8. Initialize scheduler
	sched := scheduler.NewScheduler(db, cfg, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 9. Initialize HTTP server
	server := api.NewServer(cfg, db, pipe, logger)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 10. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Mediastash is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Mediastash stopped")
	return nil
}

// Package pipeline sequences one item through
// prefetching -> downloading -> processing -> ready, persisting every
// transition and finishing with an atomic move into final storage.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/amaumene/mediastash/internal/config"
	"github.com/amaumene/mediastash/internal/controllers"
	"github.com/amaumene/mediastash/internal/formats"
	"github.com/amaumene/mediastash/internal/models"
	"github.com/amaumene/mediastash/internal/utils"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"
)

// Pipeline owns the media item state machine and the worker pool that
// drives it
type Pipeline struct {
	cfg          *config.Config
	db           *models.Database
	prefetchCtrl *controllers.PrefetchController
	identityCtrl *controllers.IdentityController
	downloadCtrl *controllers.DownloadController
	processCtrl  *controllers.ProcessController
	blocklist    *utils.Blocklist
	logger       *logrus.Logger

	queue chan string
	done  chan struct{}
}

// NewPipeline creates a new pipeline
func NewPipeline(
	cfg *config.Config,
	db *models.Database,
	prefetchCtrl *controllers.PrefetchController,
	identityCtrl *controllers.IdentityController,
	downloadCtrl *controllers.DownloadController,
	processCtrl *controllers.ProcessController,
	blocklist *utils.Blocklist,
	logger *logrus.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:          cfg,
		db:           db,
		prefetchCtrl: prefetchCtrl,
		identityCtrl: identityCtrl,
		downloadCtrl: downloadCtrl,
		processCtrl:  processCtrl,
		blocklist:    blocklist,
		logger:       logger,
		queue:        make(chan string, 256),
		done:         make(chan struct{}),
	}
}

// Start launches the worker pool
func (p *Pipeline) Start(ctx context.Context) {
	p.logger.WithField("workers", p.cfg.WorkerCount).Info("Starting pipeline workers")

	for i := 0; i < p.cfg.WorkerCount; i++ {
		go p.worker(ctx, i)
	}
}

// Stop signals the workers to drain and exit
func (p *Pipeline) Stop() {
	p.logger.Info("Stopping pipeline workers")
	close(p.done)
}

func (p *Pipeline) worker(ctx context.Context, id int) {
	log := p.logger.WithField("worker", id)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case itemID := <-p.queue:
			log.WithField("item_id", itemID).Info("Picked up item")
			p.run(ctx, itemID)
		}
	}
}

// Submit creates or reuses the item for reference and enqueues a fresh
// run of the state machine. Resubmitting the same reference always
// restarts at prefetching, including from ready; that is the overwrite
// trigger.
func (p *Pipeline) Submit(reference string, requested models.RequestedType) (string, error) {
	if reference == "" {
		return "", fmt.Errorf("reference is required")
	}

	if blocked, term := p.blocklist.IsBlocked(reference); blocked {
		p.logger.WithFields(logrus.Fields{
			"reference": reference,
			"term":      term,
		}).Warn("Reference rejected by blocklist")
		return "", fmt.Errorf("reference is blocked (matched %q)", term)
	}

	item, isNew, err := p.identityCtrl.GetOrCreate(reference, requested)
	if err != nil {
		return "", err
	}

	select {
	case p.queue <- item.ID:
	default:
		return "", fmt.Errorf("ingestion queue is full")
	}

	p.logger.WithFields(logrus.Fields{
		"item_id":   item.ID,
		"reference": reference,
		"new":       isNew,
	}).Info("Item enqueued")

	return item.ID, nil
}

// GetStatus returns the current item record
func (p *Pipeline) GetStatus(id string) (*models.MediaItem, error) {
	return p.db.GetItemByID(id)
}

// run advances one item through the full state machine. Every failure is
// caught here, categorized, and persisted; an item never sticks
// mid-pipeline without a status.
func (p *Pipeline) run(ctx context.Context, itemID string) {
	item, err := p.db.GetItemByID(itemID)
	if err != nil {
		p.logger.WithError(err).WithField("item_id", itemID).Error("Failed to load item")
		return
	}

	itemLog := utils.NewItemLog(p.logPath(item.ID))
	item.LogPath = itemLog.Path()

	itemLog.Write("=== SESSION STARTED ===")
	itemLog.Writef("Item: %s", item.ID)
	itemLog.Writef("Reference: %s", item.SourceReference)
	itemLog.Writef("Requested type: %s", item.RequestedType)

	scratchDir, err := p.makeScratchDir(item.ID)
	if err != nil {
		p.fail(item, itemLog, models.ErrFilesystemFailed, err)
		return
	}
	itemLog.Writef("Scratch directory: %s", scratchDir)

	// PREFETCHING
	if err := p.setStatus(item, models.StatusPrefetching, itemLog); err != nil {
		p.fail(item, itemLog, models.ErrFilesystemFailed, err)
		return
	}

	strategy := controllers.ResolveStrategy(item.SourceReference)
	itemLog.Writef("Strategy: %s", strategy)

	prefetch, err := p.prefetchCtrl.Prefetch(ctx, item.SourceReference, strategy, itemLog)
	if err != nil {
		p.fail(item, itemLog, controllers.CategoryOf(err), err)
		return
	}

	if err := p.applyPrefetch(item, prefetch); err != nil {
		p.fail(item, itemLog, models.ErrFilesystemFailed, err)
		return
	}
	itemLog.Writef("Resolved type: %s", item.ResolvedType)
	itemLog.Writef("Slug: %s", item.Slug)

	// A page scan may have replaced the reference with the media URL it
	// found; re-resolve the strategy for it
	downloadRef := item.SourceReference
	if prefetch.MediaURL != "" {
		downloadRef = prefetch.MediaURL
		strategy = controllers.ResolveStrategy(downloadRef)
		itemLog.Writef("Download rerouted to embedded media (%s): %s", strategy, downloadRef)
	}

	// DOWNLOADING
	if err := p.setStatus(item, models.StatusDownloading, itemLog); err != nil {
		p.fail(item, itemLog, models.ErrFilesystemFailed, err)
		return
	}

	downloaded, err := p.downloadCtrl.Download(ctx, item, downloadRef, strategy, scratchDir, itemLog)
	if err != nil {
		p.fail(item, itemLog, controllers.CategoryOf(err), err)
		return
	}

	// PROCESSING
	if err := p.setStatus(item, models.StatusProcessing, itemLog); err != nil {
		p.fail(item, itemLog, models.ErrFilesystemFailed, err)
		return
	}

	processed, err := p.processCtrl.Process(ctx, downloaded, item.ResolvedType, prefetch, item.TranscodeArgs, scratchDir, itemLog)
	if err != nil {
		p.fail(item, itemLog, controllers.CategoryOf(err), err)
		return
	}

	p.applyProcessed(item, processed, itemLog)

	// Atomic move to final storage, then READY
	if err := p.finalize(item, processed, downloaded, scratchDir, itemLog); err != nil {
		p.fail(item, itemLog, models.ErrFilesystemFailed, err)
		return
	}

	now := time.Now()
	item.DownloadedAt = &now
	item.Status = models.StatusReady
	if err := p.db.UpdateItem(item); err != nil {
		p.logger.WithError(err).WithField("item_id", item.ID).Error("Failed to persist ready status")
		return
	}

	itemLog.Write("=== READY ===")
	itemLog.Writef("Completed: %s", item.Title)

	p.logger.WithFields(logrus.Fields{
		"item_id": item.ID,
		"slug":    item.Slug,
		"title":   item.Title,
	}).Info("Item ready")
}

// applyPrefetch persists prefetch metadata, resolves the media type, and
// binds the slug. The slug is bound exactly once per reference; reruns
// keep it even when the upstream title changed.
func (p *Pipeline) applyPrefetch(item *models.MediaItem, prefetch *controllers.PrefetchResult) error {
	item.Title = prefetch.Title
	item.Description = prefetch.Description
	item.Author = prefetch.Author
	item.PublishDate = prefetch.PublishDate
	item.DurationSeconds = prefetch.DurationSeconds
	item.SourceIdentifier = prefetch.SourceIdentifier
	item.CanonicalURL = prefetch.CanonicalURL
	item.ResolvedType = controllers.ResolveMediaType(item.RequestedType, prefetch)

	if err := p.identityCtrl.BindSlug(item, item.Title); err != nil {
		return err
	}

	return p.db.UpdateItem(item)
}

// applyProcessed folds source-file tags back into the item record.
// Tags embedded in the file win over extraction-tool metadata.
func (p *Pipeline) applyProcessed(item *models.MediaItem, processed *controllers.ProcessedFile, itemLog *utils.ItemLog) {
	if processed.SourceTitle != "" && processed.SourceTitle != item.Title {
		itemLog.Writef("Title from embedded tags: %s", processed.SourceTitle)
		item.Title = processed.SourceTitle
	}
	if processed.SourceArtist != "" {
		item.Author = processed.SourceArtist
	}
	if processed.DurationSeconds > 0 {
		item.DurationSeconds = processed.DurationSeconds
	}
}

// finalize relocates the scratch artifacts to the slug-keyed final
// directory in one rename, then records final sizes and paths. The two
// directories live under the same root so the rename is atomic.
func (p *Pipeline) finalize(item *models.MediaItem, processed *controllers.ProcessedFile, downloaded *controllers.DownloadedFile, scratchDir string, itemLog *utils.ItemLog) error {
	finalDir := filepath.Join(p.cfg.MediaDir, item.Slug)

	itemLog.Write("=== MOVING TO FINAL DIRECTORY ===")

	// Overwrite path: a previous run's artifacts are replaced wholesale
	if _, err := os.Stat(finalDir); err == nil {
		itemLog.Writef("Removing existing directory: %s", finalDir)
		if err := os.RemoveAll(finalDir); err != nil {
			return fmt.Errorf("failed to remove existing final directory: %w", err)
		}
	}

	if err := os.Rename(scratchDir, finalDir); err != nil {
		return fmt.Errorf("failed to move scratch to final directory: %w", err)
	}
	itemLog.Writef("Moved to: %s", finalDir)

	item.BaseDirectory = finalDir
	item.ContentPath = filepath.Base(processed.ContentPath)
	if processed.ThumbnailPath != "" {
		item.ThumbnailPath = filepath.Base(processed.ThumbnailPath)
	} else {
		item.ThumbnailPath = ""
	}
	if processed.SubtitlePath != "" {
		item.SubtitlePath = filepath.Base(processed.SubtitlePath)
	} else {
		item.SubtitlePath = ""
	}

	// Size and MIME come from the final file, not the scratch estimate
	finalContent := filepath.Join(finalDir, item.ContentPath)
	info, err := os.Stat(finalContent)
	if err != nil {
		return fmt.Errorf("final content file missing: %w", err)
	}
	item.FileSize = info.Size()
	item.MimeType = formats.MimeType(filepath.Ext(item.ContentPath))
	if item.MimeType == "application/octet-stream" && downloaded.MimeType != "" {
		item.MimeType = downloaded.MimeType
	}

	itemLog.Writef("Final content: %s (%d bytes, %s)", item.ContentPath, item.FileSize, item.MimeType)

	return nil
}

// setStatus persists a state transition and logs it before any work of
// that stage begins
func (p *Pipeline) setStatus(item *models.MediaItem, status models.Status, itemLog *utils.ItemLog) error {
	item.Status = status
	if err := p.db.UpdateItem(item); err != nil {
		return fmt.Errorf("failed to persist status %s: %w", status, err)
	}
	itemLog.Writef("=== %s ===", statusBanner(status))
	return nil
}

// fail records a categorized failure. The scratch directory is left in
// place for inspection; the time-based sweep handles it later.
func (p *Pipeline) fail(item *models.MediaItem, itemLog *utils.ItemLog, category models.ErrorCategory, cause error) {
	itemLog.Write("=== ERROR ===")
	itemLog.Writef("Category: %s", category)
	itemLog.Writef("Cause: %v", cause)

	item.Status = models.StatusError
	item.ErrorMessage = string(category)
	if err := p.db.UpdateItem(item); err != nil {
		p.logger.WithError(err).WithField("item_id", item.ID).Error("Failed to persist error status")
	}

	p.logger.WithFields(logrus.Fields{
		"item_id":  item.ID,
		"category": category,
	}).WithError(cause).Error("Pipeline failed")
}

// logPath returns the append-only log location for an item. Logs live
// outside the slug directory so an overwrite can never truncate them.
func (p *Pipeline) logPath(itemID string) string {
	return filepath.Join(p.cfg.MediaDir, "logs", itemID+".log")
}

// makeScratchDir creates a scratch directory private to this attempt.
// Concurrent attempts on the same reference each get their own.
func (p *Pipeline) makeScratchDir(itemID string) (string, error) {
	suffix, err := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz0123456789", 6)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(p.cfg.MediaDir, fmt.Sprintf("tmp-%s-%s", itemID, suffix))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return dir, nil
}

func statusBanner(status models.Status) string {
	switch status {
	case models.StatusPrefetching:
		return "PREFETCHING"
	case models.StatusDownloading:
		return "DOWNLOADING"
	case models.StatusProcessing:
		return "PROCESSING"
	case models.StatusReady:
		return "READY"
	default:
		return "ERROR"
	}
}

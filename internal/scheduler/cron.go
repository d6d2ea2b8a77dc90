package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amaumene/mediastash/internal/config"
	"github.com/amaumene/mediastash/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler manages scheduled maintenance tasks
type Scheduler struct {
	cron   *cron.Cron
	db     *models.Database
	cfg    *config.Config
	logger *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(db *models.Database, cfg *config.Config, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Every hour: sweep old scratch directories
	_, err := s.cron.AddFunc("0 * * * *", func() {
		s.runScratchSweep()
	})
	if err != nil {
		return fmt.Errorf("failed to add scratch sweep job: %w", err)
	}

	// Every 10 minutes: check for stuck items
	_, err = s.cron.AddFunc("*/10 * * * *", func() {
		s.runStuckItemCheck()
	})
	if err != nil {
		return fmt.Errorf("failed to add stuck item check job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runScratchSweep deletes scratch directories older than the configured
// age. Failed attempts keep their scratch around for inspection until
// this sweep catches up with them.
func (s *Scheduler) runScratchSweep() {
	s.logger.Debug("Running scratch directory sweep")

	cutoff := time.Now().Add(-time.Duration(s.cfg.ScratchMaxAgeHours) * time.Hour)

	entries, err := os.ReadDir(s.cfg.MediaDir)
	if err != nil {
		s.logger.WithError(err).Error("Failed to read media directory")
		return
	}

	swept := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "tmp-") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(s.cfg.MediaDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			s.logger.WithError(err).WithField("dir", path).Error("Failed to sweep scratch directory")
			continue
		}
		swept++

		s.logger.WithField("dir", entry.Name()).Info("Swept scratch directory")
	}

	if swept > 0 {
		s.logger.WithField("count", swept).Info("Scratch sweep completed")
	}
}

// runStuckItemCheck fails items whose status has not moved within the
// configured window. A worker that died mid-item leaves it stuck in an
// in-flight state; flagging it lets a resubmission start clean.
func (s *Scheduler) runStuckItemCheck() {
	s.logger.Debug("Running stuck item check")

	cutoff := time.Now().Add(-time.Duration(s.cfg.StuckTimeoutMinutes) * time.Minute)

	items, err := s.db.GetStaleItems(cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Failed to query stale items")
		return
	}

	for _, item := range items {
		s.logger.WithFields(logrus.Fields{
			"item_id": item.ID,
			"status":  item.Status,
		}).Warn("Item stuck, marking as error")

		item.Status = models.StatusError
		item.ErrorMessage = string(models.ErrStalled)
		if err := s.db.UpdateItem(item); err != nil {
			s.logger.WithError(err).Error("Failed to update stuck item")
		}
	}
}

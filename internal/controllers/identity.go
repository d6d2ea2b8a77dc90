package controllers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/amaumene/mediastash/internal/config"
	"github.com/amaumene/mediastash/internal/models"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"
)

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	idLength         = 21
	slugSuffixLength = 8
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// IdentityController assigns stable ids and slugs and governs the
// overwrite-vs-create decision
type IdentityController struct {
	db           *models.Database
	slugMaxWords int
	slugMaxChars int
	logger       *logrus.Logger
}

// NewIdentityController creates a new identity controller
func NewIdentityController(db *models.Database, cfg *config.Config, logger *logrus.Logger) *IdentityController {
	return &IdentityController{
		db:           db,
		slugMaxWords: cfg.SlugMaxWords,
		slugMaxChars: cfg.SlugMaxChars,
		logger:       logger,
	}
}

// NewID generates a fresh opaque item id
func NewID() string {
	id, err := gonanoid.Generate(idAlphabet, idLength)
	if err != nil {
		// gonanoid only errors on bad alphabet/size arguments
		panic(err)
	}
	return id
}

// GetOrCreate returns the item bound to reference, creating one when none
// exists. Reuse is the overwrite path: the id and slug survive, the state
// machine restarts at prefetching and the previous error is cleared.
func (c *IdentityController) GetOrCreate(reference string, requested models.RequestedType) (*models.MediaItem, bool, error) {
	existing, err := c.db.GetItemByReference(reference)
	if err == nil {
		existing.RequestedType = requested
		existing.Status = models.StatusPrefetching
		existing.ErrorMessage = ""
		if err := c.db.UpdateItem(existing); err != nil {
			return nil, false, fmt.Errorf("failed to reset existing item: %w", err)
		}

		c.logger.WithFields(logrus.Fields{
			"item_id": existing.ID,
			"slug":    existing.Slug,
		}).Info("Reusing existing item")

		return existing, false, nil
	}
	if !models.IsNotFound(err) {
		return nil, false, fmt.Errorf("failed to look up item by reference: %w", err)
	}

	item := &models.MediaItem{
		ID:              NewID(),
		SourceReference: reference,
		RequestedType:   requested,
		Status:          models.StatusPrefetching,
	}
	if err := c.db.CreateItem(item); err != nil {
		return nil, false, fmt.Errorf("failed to create item: %w", err)
	}

	c.logger.WithField("item_id", item.ID).Info("Created new item")

	return item, true, nil
}

// BindSlug derives and binds a slug for the item from title. A slug
// already bound to the item's reference is kept untouched; titles come
// and go upstream, the slug does not.
func (c *IdentityController) BindSlug(item *models.MediaItem, title string) error {
	if item.Slug != "" {
		return nil
	}

	slug := GenerateSlug(title, c.slugMaxWords, c.slugMaxChars)

	unique, err := c.ensureUniqueSlug(slug, item.SourceReference)
	if err != nil {
		return err
	}
	item.Slug = unique

	c.logger.WithFields(logrus.Fields{
		"item_id": item.ID,
		"slug":    unique,
	}).Debug("Slug bound")

	return nil
}

// ensureUniqueSlug resolves slug collisions: identical references reuse
// the slug, different references get a random disambiguating suffix
func (c *IdentityController) ensureUniqueSlug(slug, reference string) (string, error) {
	existing, err := c.db.GetItemBySlug(slug)
	if models.IsNotFound(err) {
		return slug, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up slug: %w", err)
	}

	if existing.SourceReference == reference {
		return slug, nil
	}

	suffix, err := gonanoid.Generate(idAlphabet, slugSuffixLength)
	if err != nil {
		return "", err
	}
	return slug + "-" + suffix, nil
}

// GenerateSlug derives a URL and filesystem safe slug from a title:
// lowercase, runs of non-alphanumerics collapsed to hyphens, capped at
// maxWords words and maxChars characters.
func GenerateSlug(title string, maxWords, maxChars int) string {
	slug := strings.ToLower(title)
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	words := strings.Split(slug, "-")
	if len(words) > maxWords {
		words = words[:maxWords]
	}

	slug = strings.Join(words, "-")
	if len(slug) > maxChars {
		slug = slug[:maxChars]
	}
	slug = strings.TrimRight(slug, "-")

	if slug == "" {
		return "untitled"
	}
	return slug
}

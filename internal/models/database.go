package models

import (
	"fmt"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// CreateItem creates a new media item in the database
func (db *Database) CreateItem(item *MediaItem) error {
	item.CreatedAt = time.Now()
	item.UpdatedAt = time.Now()
	return db.store.Insert(item.ID, item)
}

// UpdateItem updates an existing media item
func (db *Database) UpdateItem(item *MediaItem) error {
	item.UpdatedAt = time.Now()
	return db.store.Update(item.ID, item)
}

// GetItemByID retrieves a media item by ID
func (db *Database) GetItemByID(id string) (*MediaItem, error) {
	var item MediaItem
	if err := db.store.Get(id, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemByReference retrieves the media item bound to a source reference
func (db *Database) GetItemByReference(reference string) (*MediaItem, error) {
	var item MediaItem
	err := db.store.FindOne(&item, bolthold.Where("SourceReference").Eq(reference))
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemBySlug retrieves a media item by slug
func (db *Database) GetItemBySlug(slug string) (*MediaItem, error) {
	var item MediaItem
	err := db.store.FindOne(&item, bolthold.Where("Slug").Eq(slug))
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemsByStatus retrieves all media items with the given status
func (db *Database) GetItemsByStatus(status Status) ([]*MediaItem, error) {
	var items []*MediaItem
	err := db.store.Find(&items, bolthold.Where("Status").Eq(status))
	return items, err
}

// GetAllItems retrieves all media items
func (db *Database) GetAllItems() ([]*MediaItem, error) {
	var items []*MediaItem
	err := db.store.Find(&items, nil)
	return items, err
}

// GetStaleItems retrieves items whose status has not advanced since the cutoff.
// Ready and error items are excluded; they are terminal until resubmitted.
func (db *Database) GetStaleItems(cutoff time.Time) ([]*MediaItem, error) {
	var items []*MediaItem
	err := db.store.Find(&items,
		bolthold.Where("Status").Ne(StatusReady).
			And("Status").Ne(StatusError).
			And("UpdatedAt").Lt(cutoff))
	return items, err
}

// IsNotFound reports whether err means the record does not exist
func IsNotFound(err error) bool {
	return err == bolthold.ErrNotFound
}

package controllers

import (
	"path/filepath"
	"testing"

	"github.com/amaumene/mediastash/internal/config"
	"github.com/amaumene/mediastash/internal/models"
	"github.com/amaumene/mediastash/internal/utils"
)

func newTestIdentity(t *testing.T) (*IdentityController, *models.Database) {
	t.Helper()

	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{SlugMaxWords: 6, SlugMaxChars: 40}
	return NewIdentityController(db, cfg, utils.NewLogger("error")), db
}

func TestGenerateSlug(t *testing.T) {
	cases := []struct {
		title    string
		expected string
	}{
		{"My Great Podcast Episode", "my-great-podcast-episode"},
		{"Hello, World! (2024)", "hello-world-2024"},
		{"  --Leading & Trailing--  ", "leading-trailing"},
		{"one two three four five six seven eight", "one-two-three-four-five-six"},
		{"supercalifragilisticexpialidocious antidisestablishmentarianism", "supercalifragilisticexpialidocious-antid"},
		{"!!!", "untitled"},
		{"", "untitled"},
	}

	for _, tc := range cases {
		if got := GenerateSlug(tc.title, 6, 40); got != tc.expected {
			t.Errorf("GenerateSlug(%q) = %q, want %q", tc.title, got, tc.expected)
		}
	}
}

func TestGenerateSlugNoTrailingHyphenAfterTruncation(t *testing.T) {
	// Character truncation must not leave a dangling hyphen
	got := GenerateSlug("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa b", 6, 40)
	if got != "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Errorf("Expected truncated slug without trailing hyphen, got %q", got)
	}
}

func TestNewIDShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 21 {
			t.Fatalf("Expected 21 character id, got %d (%q)", len(id), id)
		}
		for _, r := range id {
			alnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			if !alnum {
				t.Fatalf("Unexpected character %q in id %q", r, id)
			}
		}
		if seen[id] {
			t.Fatalf("Duplicate id generated: %q", id)
		}
		seen[id] = true
	}
}

func TestGetOrCreateNewItem(t *testing.T) {
	identity, _ := newTestIdentity(t)

	item, created, err := identity.GetOrCreate("https://example.com/a", models.RequestedTypeAuto)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if !created {
		t.Error("Expected created=true for a new reference")
	}
	if item.ID == "" {
		t.Error("Expected a non-empty id")
	}
	if item.Status != models.StatusPrefetching {
		t.Errorf("Expected status prefetching, got %s", item.Status)
	}
}

func TestGetOrCreateReusesExistingItem(t *testing.T) {
	identity, db := newTestIdentity(t)

	first, _, err := identity.GetOrCreate("https://example.com/a", models.RequestedTypeAuto)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	first.Slug = "first-slug"
	first.Status = models.StatusError
	first.ErrorMessage = "download_failed"
	if err := db.UpdateItem(first); err != nil {
		t.Fatalf("Failed to update item: %v", err)
	}

	second, created, err := identity.GetOrCreate("https://example.com/a", models.RequestedTypeAudio)
	if err != nil {
		t.Fatalf("GetOrCreate failed on resubmit: %v", err)
	}
	if created {
		t.Error("Expected created=false when reference already exists")
	}
	if second.ID != first.ID {
		t.Errorf("Expected reused id %s, got %s", first.ID, second.ID)
	}
	if second.Slug != "first-slug" {
		t.Errorf("Expected slug to survive resubmission, got %q", second.Slug)
	}
	if second.Status != models.StatusPrefetching {
		t.Errorf("Expected status reset to prefetching, got %s", second.Status)
	}
	if second.ErrorMessage != "" {
		t.Errorf("Expected error message cleared, got %q", second.ErrorMessage)
	}
	if second.RequestedType != models.RequestedTypeAudio {
		t.Errorf("Expected requested type updated to audio, got %s", second.RequestedType)
	}
}

func TestBindSlugKeepsExistingSlug(t *testing.T) {
	identity, _ := newTestIdentity(t)

	item := &models.MediaItem{ID: NewID(), SourceReference: "https://example.com/a", Slug: "already-bound"}
	if err := identity.BindSlug(item, "A Completely Different Title"); err != nil {
		t.Fatalf("BindSlug failed: %v", err)
	}
	if item.Slug != "already-bound" {
		t.Errorf("Expected bound slug to be kept, got %q", item.Slug)
	}
}

func TestBindSlugCollisionAcrossReferences(t *testing.T) {
	identity, db := newTestIdentity(t)

	first := &models.MediaItem{
		ID:              NewID(),
		SourceReference: "https://example.com/a",
		Slug:            "same-title",
		Status:          models.StatusReady,
	}
	if err := db.CreateItem(first); err != nil {
		t.Fatalf("Failed to create item: %v", err)
	}

	second := &models.MediaItem{ID: NewID(), SourceReference: "https://example.com/b"}
	if err := identity.BindSlug(second, "Same Title"); err != nil {
		t.Fatalf("BindSlug failed: %v", err)
	}
	if second.Slug == "same-title" {
		t.Error("Expected a disambiguating suffix for a colliding slug from a different reference")
	}
	if len(second.Slug) != len("same-title")+1+8 {
		t.Errorf("Expected slug with 8 character suffix, got %q", second.Slug)
	}
}

func TestBindSlugSameReferenceReusesSlug(t *testing.T) {
	identity, db := newTestIdentity(t)

	first := &models.MediaItem{
		ID:              NewID(),
		SourceReference: "https://example.com/a",
		Slug:            "same-title",
		Status:          models.StatusReady,
	}
	if err := db.CreateItem(first); err != nil {
		t.Fatalf("Failed to create item: %v", err)
	}

	// Same reference resolving to the same slug is not a collision
	clone := &models.MediaItem{ID: NewID(), SourceReference: "https://example.com/a"}
	if err := identity.BindSlug(clone, "Same Title"); err != nil {
		t.Fatalf("BindSlug failed: %v", err)
	}
	if clone.Slug != "same-title" {
		t.Errorf("Expected reused slug same-title, got %q", clone.Slug)
	}
}

package models

import "time"

// MediaItem represents one ingested source and its durable artifacts
type MediaItem struct {
	ID   string `boltholdKey:"ID"` // NanoID, immutable, used as feed identity
	Slug string `boltholdIndex:"Slug"`

	// Source
	SourceReference string `boltholdIndex:"SourceReference"` // URL or local path as submitted
	RequestedType   RequestedType
	ResolvedType    MediaType // set after prefetch

	// Lifecycle
	Status       Status `boltholdIndex:"Status"`
	ErrorMessage string // set iff Status == error

	// Metadata
	Title            string
	Description      string
	Author           string
	PublishDate      *time.Time
	DurationSeconds  int
	SourceIdentifier string // extractor-specific id
	CanonicalURL     string

	// Artifacts (relative to BaseDirectory except LogPath)
	BaseDirectory string
	ContentPath   string
	ThumbnailPath string
	SubtitlePath  string
	FileSize      int64
	MimeType      string

	// Provenance
	LogPath       string
	DownloadArgs  string // extra extraction-tool arguments
	TranscodeArgs string // extra transcoding-tool arguments

	// Timestamps
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DownloadedAt *time.Time
}

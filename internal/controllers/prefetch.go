package controllers

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/amaumene/mediastash/internal/formats"
	"github.com/amaumene/mediastash/internal/models"
	"github.com/amaumene/mediastash/internal/utils"
	"github.com/sirupsen/logrus"
)

// PrefetchResult holds the metadata obtained before any payload transfer
type PrefetchResult struct {
	Title            string
	Description      string
	Author           string
	PublishDate      *time.Time
	DurationSeconds  int
	Extractor        string
	SourceIdentifier string
	CanonicalURL     string
	FileExtension    string
	HasVideoStreams  bool
	HasAudioStreams  bool

	// MediaURL is set when a page scan found the playable media embedded
	// in an HTML reference; the download stage fetches it instead of the
	// submitted reference
	MediaURL string
}

// PrefetchController obtains metadata for a reference without
// downloading the full payload
type PrefetchController struct {
	extractor Extractor
	scanner   PageScanner
	logger    *logrus.Logger
}

// NewPrefetchController creates a new prefetch controller
func NewPrefetchController(extractor Extractor, scanner PageScanner, logger *logrus.Logger) *PrefetchController {
	return &PrefetchController{
		extractor: extractor,
		scanner:   scanner,
		logger:    logger,
	}
}

// Prefetch fetches metadata per strategy. A reference that resolves to a
// playlist is rejected here with a playlist_rejected error; that rule is
// policy, not a transient failure, and is never retried by the pipeline.
func (c *PrefetchController) Prefetch(ctx context.Context, reference string, strategy models.Strategy, itemLog *utils.ItemLog) (*PrefetchResult, error) {
	switch strategy {
	case models.StrategyLocalFile:
		return c.prefetchLocal(reference, itemLog), nil
	case models.StrategyDirect:
		return c.prefetchDirect(reference, itemLog)
	case models.StrategyExtraction:
		return c.prefetchExtraction(ctx, reference, itemLog)
	default:
		return nil, NewPipelineError(models.ErrInvalidReference, fmt.Errorf("unknown strategy: %s", strategy))
	}
}

// prefetchLocal infers metadata from the filename without opening the file
func (c *PrefetchController) prefetchLocal(path string, itemLog *utils.ItemLog) *PrefetchResult {
	base := filepath.Base(path)
	ext := formats.Normalize(filepath.Ext(base))
	title := strings.TrimSuffix(base, filepath.Ext(base))
	if title == "" {
		title = "local-media"
	}

	result := &PrefetchResult{
		Title:         title,
		FileExtension: ext,
	}
	result.HasAudioStreams, result.HasVideoStreams = formats.StreamsFromExtension(ext)

	itemLog.Writef("Local file detected: %s", path)
	itemLog.Writef("Title from filename: %s", title)

	return result
}

// prefetchDirect infers metadata from the URL path
func (c *PrefetchController) prefetchDirect(rawURL string, itemLog *utils.ItemLog) (*PrefetchResult, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewPipelineError(models.ErrInvalidReference, fmt.Errorf("unparseable URL: %w", err))
	}

	base := filepath.Base(parsed.Path)
	ext := formats.Normalize(filepath.Ext(base))
	title := strings.TrimSuffix(base, filepath.Ext(base))
	if title == "" {
		title = "downloaded-media"
	}

	result := &PrefetchResult{
		Title:         title,
		CanonicalURL:  rawURL,
		FileExtension: ext,
	}
	result.HasAudioStreams, result.HasVideoStreams = formats.StreamsFromExtension(ext)

	itemLog.Writef("Direct URL detected: %s", rawURL)
	itemLog.Writef("Title from URL path: %s", title)

	return result, nil
}

// prefetchExtraction runs the extraction tool in metadata-only mode.
// HTML pages are scanned for embedded media first; the scan is retried
// as a fallback when the extraction tool fails on anything else.
func (c *PrefetchController) prefetchExtraction(ctx context.Context, reference string, itemLog *utils.ItemLog) (*PrefetchResult, error) {
	if isHTMLReference(reference) {
		itemLog.Write("HTML page detected, scanning for embedded media")
		if result := c.scanPage(ctx, reference, itemLog); result != nil {
			return result, nil
		}
	}

	itemLog.Writef("Probing with extraction tool: %s", reference)

	probe, err := c.extractor.Probe(ctx, reference)
	if err != nil {
		itemLog.Writef("Metadata probe failed: %v", err)
		if result := c.scanPage(ctx, reference, itemLog); result != nil {
			return result, nil
		}
		return nil, NewPipelineError(models.ErrDownloadFailed, fmt.Errorf("metadata probe failed: %w", err))
	}

	if probe.IsPlaylist {
		itemLog.Writef("Reference is a playlist (%d entries), rejecting", probe.EntryCount)
		return nil, NewPipelineError(models.ErrPlaylistRejected,
			fmt.Errorf("reference resolves to a playlist with %d entries", probe.EntryCount))
	}

	result := &PrefetchResult{
		Title:            probe.Title,
		Description:      probe.Description,
		Author:           probe.Author,
		PublishDate:      probe.UploadDate,
		DurationSeconds:  probe.DurationSeconds,
		Extractor:        probe.Extractor,
		SourceIdentifier: probe.SourceIdentifier,
		CanonicalURL:     probe.CanonicalURL,
		HasVideoStreams:  probe.HasVideoStreams,
		HasAudioStreams:  probe.HasAudioStreams,
	}
	if result.Title == "" {
		result.Title = "untitled"
	}

	itemLog.Writef("Metadata extracted: %s", result.Title)
	itemLog.Writef("Extractor: %s", result.Extractor)
	itemLog.Writef("Has video: %t, has audio: %t", result.HasVideoStreams, result.HasAudioStreams)

	return result, nil
}

// scanPage asks the page scanner for media embedded in reference. A
// scan miss is not an error here; the caller falls through to its own
// failure path.
func (c *PrefetchController) scanPage(ctx context.Context, reference string, itemLog *utils.ItemLog) *PrefetchResult {
	page, err := c.scanner.ExtractMediaURL(ctx, reference)
	if err != nil {
		itemLog.Writef("Page scan found no media: %v", err)
		return nil
	}

	itemLog.Writef("Embedded %s found in page: %s", page.Kind, page.MediaURL)

	title := page.Title
	if title == "" {
		title = "content"
	}

	ext := ""
	if parsed, err := url.Parse(page.MediaURL); err == nil {
		ext = formats.Normalize(filepath.Ext(parsed.Path))
	}

	result := &PrefetchResult{
		Title:         title,
		CanonicalURL:  reference,
		FileExtension: ext,
		MediaURL:      page.MediaURL,
	}
	result.HasAudioStreams = true
	result.HasVideoStreams = page.Kind == models.MediaTypeVideo

	return result
}

// isHTMLReference reports whether a reference's path names an HTML page
func isHTMLReference(reference string) bool {
	path := reference
	if parsed, err := url.Parse(reference); err == nil && parsed.Path != "" {
		path = parsed.Path
	}
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".html" || ext == ".htm"
}

// ResolveMediaType settles the concrete audio/video type for an item.
// An explicit request always wins; auto picks video whenever a video
// stream exists, and on ambiguity defaults to video so a visual track
// the caller did not know to ask for is never discarded.
func ResolveMediaType(requested models.RequestedType, result *PrefetchResult) models.MediaType {
	switch requested {
	case models.RequestedTypeAudio:
		return models.MediaTypeAudio
	case models.RequestedTypeVideo:
		return models.MediaTypeVideo
	}

	if result.HasVideoStreams {
		return models.MediaTypeVideo
	}
	if result.HasAudioStreams {
		return models.MediaTypeAudio
	}
	return models.MediaTypeVideo
}

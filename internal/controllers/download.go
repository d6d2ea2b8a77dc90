package controllers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/amaumene/mediastash/internal/formats"
	"github.com/amaumene/mediastash/internal/models"
	"github.com/amaumene/mediastash/internal/utils"
	"github.com/sirupsen/logrus"
)

// DownloadedFile is the uniform result every strategy produces
type DownloadedFile struct {
	ContentPath   string
	ThumbnailPath string
	SubtitlePath  string
	DeclaredSize  int64
	MimeType      string
}

// DownloadController executes the chosen fetch strategy into a scratch
// directory. It never writes into the final storage location; a failed
// download must not corrupt a previously ready item.
type DownloadController struct {
	extractor  Extractor
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewDownloadController creates a new download controller
func NewDownloadController(extractor Extractor, logger *logrus.Logger) *DownloadController {
	return &DownloadController{
		extractor: extractor,
		httpClient: &http.Client{
			Timeout: 30 * time.Minute,
		},
		logger: logger,
	}
}

// Download fetches reference's content into scratchDir per strategy.
// reference is usually the item's source reference, but a page scan may
// have substituted the media URL embedded in it.
func (c *DownloadController) Download(ctx context.Context, item *models.MediaItem, reference string, strategy models.Strategy, scratchDir string, itemLog *utils.ItemLog) (*DownloadedFile, error) {
	switch strategy {
	case models.StrategyLocalFile:
		return c.downloadLocal(reference, scratchDir, itemLog)
	case models.StrategyDirect:
		return c.downloadDirect(ctx, reference, scratchDir, itemLog)
	case models.StrategyExtraction:
		return c.downloadExtraction(ctx, item, reference, scratchDir, itemLog)
	default:
		return nil, NewPipelineError(models.ErrInvalidReference, fmt.Errorf("unknown strategy: %s", strategy))
	}
}

// downloadLocal copies a local file byte-for-byte into the scratch directory
func (c *DownloadController) downloadLocal(path, scratchDir string, itemLog *utils.ItemLog) (*DownloadedFile, error) {
	ext := formats.Normalize(filepath.Ext(path))
	dest := filepath.Join(scratchDir, "download"+ext)

	itemLog.Writef("Copying local file: %s", path)

	src, err := os.Open(path)
	if err != nil {
		return nil, NewPipelineError(models.ErrFilesystemFailed, fmt.Errorf("failed to open source file: %w", err))
	}
	defer src.Close()

	size, err := writeStream(dest, src)
	if err != nil {
		return nil, NewPipelineError(models.ErrFilesystemFailed, err)
	}

	itemLog.Writef("Copied %d bytes to %s", size, dest)

	return &DownloadedFile{
		ContentPath:  dest,
		DeclaredSize: size,
	}, nil
}

// downloadDirect streams the URL via HTTP GET into the scratch directory
func (c *DownloadController) downloadDirect(ctx context.Context, rawURL, scratchDir string, itemLog *utils.ItemLog) (*DownloadedFile, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewPipelineError(models.ErrInvalidReference, fmt.Errorf("unparseable URL: %w", err))
	}

	// Extension comes from the URL path; query strings must not leak
	// into the scratch filename
	ext := formats.Normalize(filepath.Ext(parsed.Path))
	if ext == "" {
		ext = formats.TargetVideoExtension
	}
	dest := filepath.Join(scratchDir, "download"+ext)

	itemLog.Writef("Downloading from: %s", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, NewPipelineError(models.ErrInvalidReference, fmt.Errorf("failed to build request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		itemLog.Writef("HTTP request failed: %v", err)
		return nil, NewPipelineError(models.ErrDownloadFailed, fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		itemLog.Writef("HTTP status %d", resp.StatusCode)
		return nil, NewPipelineError(models.ErrDownloadFailed, fmt.Errorf("unexpected HTTP status %d", resp.StatusCode))
	}

	size, err := writeStream(dest, resp.Body)
	if err != nil {
		return nil, NewPipelineError(models.ErrFilesystemFailed, err)
	}

	itemLog.Writef("Downloaded %d bytes", size)

	return &DownloadedFile{
		ContentPath:  dest,
		DeclaredSize: size,
		MimeType:     resp.Header.Get("Content-Type"),
	}, nil
}

// downloadExtraction invokes the extraction tool for best-matching
// content plus thumbnail and subtitles. Tool failure surfaces as a
// download-stage error, never a silent downgrade.
func (c *DownloadController) downloadExtraction(ctx context.Context, item *models.MediaItem, reference, scratchDir string, itemLog *utils.ItemLog) (*DownloadedFile, error) {
	audio := item.ResolvedType == models.MediaTypeAudio
	itemLog.Writef("Downloading with extraction tool (audio=%t)", audio)

	result, err := c.extractor.Download(ctx, reference, audio, scratchDir, item.DownloadArgs)
	if err != nil {
		itemLog.Writef("Extraction tool failed: %v", err)
		return nil, NewPipelineError(models.ErrDownloadFailed, err)
	}

	itemLog.Writef("Content: %s (%d bytes)", filepath.Base(result.ContentPath), result.Size)
	if result.ThumbnailPath != "" {
		itemLog.Writef("Thumbnail: %s", filepath.Base(result.ThumbnailPath))
	}
	if result.SubtitlePath != "" {
		itemLog.Writef("Subtitles: %s", filepath.Base(result.SubtitlePath))
	}

	return &DownloadedFile{
		ContentPath:   result.ContentPath,
		ThumbnailPath: result.ThumbnailPath,
		SubtitlePath:  result.SubtitlePath,
		DeclaredSize:  result.Size,
	}, nil
}

// writeStream copies r into a new file at dest and returns the byte count
func writeStream(dest string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	return size, nil
}

package controllers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/amaumene/mediastash/internal/config"
	"github.com/amaumene/mediastash/internal/formats"
	"github.com/amaumene/mediastash/internal/models"
	"github.com/amaumene/mediastash/internal/services/ffmpeg"
	"github.com/amaumene/mediastash/internal/utils"
	"github.com/sirupsen/logrus"
)

// Fixed artifact filenames, the committed interface serving layers consume
const (
	ContentBasename   = "content"
	ThumbnailFilename = "thumbnail" + formats.ThumbnailExtension
	SubtitleFilename  = "subtitles" + formats.SubtitleExtension
)

// ProcessedFile describes the normalized artifacts left in scratch
type ProcessedFile struct {
	ContentPath   string
	ThumbnailPath string
	SubtitlePath  string
	WasTranscoded bool

	// Tags read from the source file before processing; these take
	// precedence over extraction-tool metadata on the item record too
	SourceTitle     string
	SourceArtist    string
	DurationSeconds int
}

// ProcessController turns a downloaded file into the final playable
// artifacts: transcode or stream-copy the content, merge metadata tags,
// and normalize thumbnail and subtitle side files
type ProcessController struct {
	transcoder      Transcoder
	onTranscodeFail string
	logger          *logrus.Logger
}

// NewProcessController creates a new process controller
func NewProcessController(transcoder Transcoder, cfg *config.Config, logger *logrus.Logger) *ProcessController {
	return &ProcessController{
		transcoder:      transcoder,
		onTranscodeFail: cfg.OnTranscodeFailure,
		logger:          logger,
	}
}

// NeedsTranscode reports whether content must be re-encoded to reach an
// accepted container for its media type
func NeedsTranscode(contentPath string, mediaType models.MediaType) bool {
	return !formats.IsPassThrough(filepath.Ext(contentPath), mediaType)
}

// Process normalizes the downloaded files inside scratchDir. Content ends
// up at content.<ext>, thumbnails at thumbnail.png, subtitles at
// subtitles.vtt, ready for the atomic move to final storage.
func (c *ProcessController) Process(ctx context.Context, downloaded *DownloadedFile, resolvedType models.MediaType, prefetch *PrefetchResult, transcodeArgs, scratchDir string, itemLog *utils.ItemLog) (*ProcessedFile, error) {
	c.logger.WithFields(logrus.Fields{
		"content": filepath.Base(downloaded.ContentPath),
		"type":    resolvedType,
	}).Debug("Processing downloaded file")

	result := &ProcessedFile{}

	// Source-file tags win over extraction-tool metadata, so read them first
	info, err := c.transcoder.Probe(ctx, downloaded.ContentPath)
	if err != nil {
		itemLog.Writef("Tag probe failed, proceeding without source tags: %v", err)
		info = &ffmpeg.MediaInfo{}
	}
	result.SourceTitle = info.Tag("title")
	result.SourceArtist = firstNonEmpty(info.Tag("artist"), info.Tag("author"))
	result.DurationSeconds = info.DurationSeconds

	meta := mergeMetadata(info, prefetch)

	contentPath, wasTranscoded, err := c.processContent(ctx, downloaded.ContentPath, resolvedType, meta, transcodeArgs, scratchDir, itemLog)
	if err != nil {
		return nil, err
	}
	result.ContentPath = contentPath
	result.WasTranscoded = wasTranscoded

	if downloaded.ThumbnailPath != "" {
		result.ThumbnailPath = c.processThumbnail(ctx, downloaded.ThumbnailPath, scratchDir, itemLog)
	}
	if downloaded.SubtitlePath != "" {
		result.SubtitlePath = c.processSubtitle(ctx, downloaded.SubtitlePath, scratchDir, itemLog)
	}

	itemLog.Write("Processing complete")

	return result, nil
}

// processContent runs the transcode-or-copy decision on the content file.
// The input is consumed: only the committed artifact survives in scratch.
func (c *ProcessController) processContent(ctx context.Context, inputPath string, resolvedType models.MediaType, meta ffmpeg.Metadata, transcodeArgs, scratchDir string, itemLog *utils.ItemLog) (string, bool, error) {
	ext := formats.Normalize(filepath.Ext(inputPath))
	outputPath := filepath.Join(scratchDir, ContentBasename+formats.OutputExtension(resolvedType, ext))

	if !NeedsTranscode(inputPath, resolvedType) {
		itemLog.Writef("Container %s is pass-through, no transcode", ext)

		if meta == (ffmpeg.Metadata{}) {
			// Nothing to inject, a rename is enough
			if err := os.Rename(inputPath, outputPath); err != nil {
				return "", false, NewPipelineError(models.ErrFilesystemFailed, fmt.Errorf("failed to rename content: %w", err))
			}
			return outputPath, false, nil
		}

		if err := c.transcoder.StreamCopy(ctx, inputPath, outputPath, meta); err != nil {
			// Tags are nice to have; the file is not
			itemLog.Writef("Metadata stream copy failed, copying without tags: %v", err)
			if err := copyFile(inputPath, outputPath); err != nil {
				return "", false, NewPipelineError(models.ErrFilesystemFailed, err)
			}
		}
		os.Remove(inputPath)
		return outputPath, false, nil
	}

	itemLog.Writef("Container %s needs transcode to %s", ext, filepath.Ext(outputPath))

	if err := c.transcoder.Transcode(ctx, inputPath, outputPath, resolvedType, meta, transcodeArgs); err != nil {
		itemLog.Writef("Transcode failed: %v", err)
		os.Remove(outputPath)

		if c.onTranscodeFail == config.TranscodeFailureError {
			return "", false, NewPipelineError(models.ErrTranscodeFailed, err)
		}

		// Degrade to the original container: the item stays available,
		// and the failure is on record in the log
		itemLog.Writef("Falling back to original container (%s)", ext)
		fallbackPath := filepath.Join(scratchDir, ContentBasename+ext)
		if err := os.Rename(inputPath, fallbackPath); err != nil {
			return "", false, NewPipelineError(models.ErrFilesystemFailed, fmt.Errorf("failed to rename content: %w", err))
		}
		return fallbackPath, false, nil
	}

	itemLog.Writef("Transcoded to %s", filepath.Base(outputPath))
	os.Remove(inputPath)
	return outputPath, true, nil
}

// processThumbnail normalizes a thumbnail to PNG. Absence or conversion
// failure never fails the item; the thumbnail is an optional artifact.
func (c *ProcessController) processThumbnail(ctx context.Context, inputPath, scratchDir string, itemLog *utils.ItemLog) string {
	outputPath := filepath.Join(scratchDir, ThumbnailFilename)
	ext := formats.Normalize(filepath.Ext(inputPath))

	if ext == formats.ThumbnailExtension {
		if err := os.Rename(inputPath, outputPath); err != nil {
			itemLog.Writef("Thumbnail rename failed: %v", err)
			return ""
		}
		itemLog.Write("Thumbnail already PNG")
		return outputPath
	}

	if err := c.transcoder.ConvertThumbnail(ctx, inputPath, outputPath); err != nil {
		itemLog.Writef("Thumbnail conversion failed, keeping original bytes: %v", err)
		if err := copyFile(inputPath, outputPath); err != nil {
			itemLog.Writef("Thumbnail copy failed, dropping thumbnail: %v", err)
			return ""
		}
	} else {
		itemLog.Writef("Thumbnail converted to PNG: %s", filepath.Base(inputPath))
	}
	os.Remove(inputPath)
	return outputPath
}

// processSubtitle normalizes subtitles to VTT, same failure posture as
// thumbnails
func (c *ProcessController) processSubtitle(ctx context.Context, inputPath, scratchDir string, itemLog *utils.ItemLog) string {
	outputPath := filepath.Join(scratchDir, SubtitleFilename)
	ext := formats.Normalize(filepath.Ext(inputPath))

	if ext == formats.SubtitleExtension {
		if err := os.Rename(inputPath, outputPath); err != nil {
			itemLog.Writef("Subtitle rename failed: %v", err)
			return ""
		}
		itemLog.Write("Subtitles already VTT")
		return outputPath
	}

	if err := c.transcoder.ConvertSubtitle(ctx, inputPath, outputPath); err != nil {
		itemLog.Writef("Subtitle conversion failed, keeping original bytes: %v", err)
		if err := copyFile(inputPath, outputPath); err != nil {
			itemLog.Writef("Subtitle copy failed, dropping subtitles: %v", err)
			return ""
		}
	} else {
		itemLog.Writef("Subtitles converted to VTT: %s", filepath.Base(inputPath))
	}
	os.Remove(inputPath)
	return outputPath
}

// mergeMetadata picks which external metadata fields to inject: only
// those the source file does not already carry. Creator-supplied tags
// survive re-ingestion untouched.
func mergeMetadata(info *ffmpeg.MediaInfo, prefetch *PrefetchResult) ffmpeg.Metadata {
	var meta ffmpeg.Metadata
	if prefetch == nil {
		return meta
	}
	if prefetch.Title != "" && info.Tag("title") == "" {
		meta.Title = prefetch.Title
	}
	if prefetch.Author != "" && info.Tag("artist") == "" {
		meta.Artist = prefetch.Author
	}
	if prefetch.Description != "" && info.Tag("comment") == "" {
		meta.Comment = prefetch.Description
	}
	return meta
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// copyFile copies src to dst byte-for-byte
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy to %s: %w", dst, err)
	}
	return nil
}

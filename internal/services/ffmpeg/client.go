package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/amaumene/mediastash/internal/config"
	"github.com/amaumene/mediastash/internal/models"
	"github.com/sirupsen/logrus"
)

// Metadata holds the tag values injected into an output file
type Metadata struct {
	Title   string
	Artist  string
	Comment string
}

// Client invokes the ffmpeg and ffprobe binaries
type Client struct {
	ffmpegBin  string
	ffprobeBin string
	timeout    time.Duration
	argsAudio  string
	argsVideo  string
	logger     *logrus.Logger
}

// NewClient creates a new ffmpeg client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.FfmpegPath == "" || cfg.FfprobePath == "" {
		return nil, fmt.Errorf("ffmpeg and ffprobe paths are required")
	}

	return &Client{
		ffmpegBin:  cfg.FfmpegPath,
		ffprobeBin: cfg.FfprobePath,
		timeout:    time.Duration(cfg.ToolTimeoutMinutes) * time.Minute,
		argsAudio:  cfg.FfmpegArgsAudio,
		argsVideo:  cfg.FfmpegArgsVideo,
		logger:     logger,
	}, nil
}

// codecArgs returns the fixed encode profile for a media type: AAC 128k
// for audio, H.264 capped at 1080p with AAC audio for video.
func (c *Client) codecArgs(mediaType models.MediaType) []string {
	if mediaType == models.MediaTypeAudio {
		args := []string{"-vn", "-c:a", "aac", "-b:a", "128k"}
		return appendExtra(args, c.argsAudio)
	}
	args := []string{
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-vf", "scale=-2:'min(1080,ih)'",
		"-c:a", "aac",
		"-b:a", "128k",
	}
	return appendExtra(args, c.argsVideo)
}

// Transcode re-encodes inputPath to the fixed target profile for
// mediaType, carrying existing tags over and injecting meta values.
func (c *Client) Transcode(ctx context.Context, inputPath, outputPath string, mediaType models.MediaType, meta Metadata, extraArgs string) error {
	args := []string{"-i", inputPath, "-y", "-map_metadata", "0"}
	args = append(args, c.codecArgs(mediaType)...)
	args = appendExtra(args, extraArgs)
	args = append(args, metadataArgs(meta)...)
	args = append(args, outputPath)

	c.logger.WithFields(logrus.Fields{
		"input":  inputPath,
		"output": outputPath,
		"type":   mediaType,
	}).Info("Transcoding")

	return c.runFfmpeg(ctx, args)
}

// StreamCopy copies all streams verbatim while injecting meta values.
// No re-encode happens; this path must stay lossless and fast.
func (c *Client) StreamCopy(ctx context.Context, inputPath, outputPath string, meta Metadata) error {
	args := []string{"-i", inputPath, "-y", "-map_metadata", "0", "-c", "copy"}
	args = append(args, metadataArgs(meta)...)
	args = append(args, outputPath)

	c.logger.WithFields(logrus.Fields{
		"input":  inputPath,
		"output": outputPath,
	}).Info("Stream copying with metadata")

	return c.runFfmpeg(ctx, args)
}

// ConvertThumbnail converts an image to the output format implied by
// outputPath's extension
func (c *Client) ConvertThumbnail(ctx context.Context, inputPath, outputPath string) error {
	return c.runFfmpeg(ctx, []string{"-i", inputPath, "-y", outputPath})
}

// ConvertSubtitle converts a subtitle file to the output format implied
// by outputPath's extension
func (c *Client) ConvertSubtitle(ctx context.Context, inputPath, outputPath string) error {
	return c.runFfmpeg(ctx, []string{"-i", inputPath, "-y", outputPath})
}

func (c *Client) runFfmpeg(ctx context.Context, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.ffmpegBin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, summarizeStderr(stderr.String()))
	}
	return nil
}

// metadataArgs builds -metadata flags for the non-empty fields of meta
func metadataArgs(meta Metadata) []string {
	var args []string
	if meta.Title != "" {
		args = append(args, "-metadata", "title="+meta.Title)
	}
	if meta.Artist != "" {
		args = append(args, "-metadata", "artist="+meta.Artist)
	}
	if meta.Comment != "" {
		args = append(args, "-metadata", "comment="+meta.Comment)
	}
	return args
}

func appendExtra(args []string, extra string) []string {
	if extra == "" {
		return args
	}
	return append(args, strings.Fields(extra)...)
}

// summarizeStderr returns the last non-empty stderr line
func summarizeStderr(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no stderr output"
}

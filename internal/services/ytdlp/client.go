package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/amaumene/mediastash/internal/config"
	"github.com/sirupsen/logrus"
)

// ProbeResult is the typed metadata returned by a metadata-only probe
type ProbeResult struct {
	Title            string
	Description      string
	Author           string
	DurationSeconds  int
	Extractor        string
	SourceIdentifier string
	CanonicalURL     string
	UploadDate       *time.Time
	HasVideoStreams  bool
	HasAudioStreams  bool
	IsPlaylist       bool
	EntryCount       int
}

// DownloadResult describes the files one download invocation produced
type DownloadResult struct {
	ContentPath   string
	ThumbnailPath string
	SubtitlePath  string
	Size          int64
}

// Client invokes the yt-dlp binary
type Client struct {
	binary    string
	timeout   time.Duration
	argsAudio string
	argsVideo string
	logger    *logrus.Logger
}

// NewClient creates a new yt-dlp client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.YtdlpPath == "" {
		return nil, fmt.Errorf("yt-dlp path is required")
	}

	return &Client{
		binary:    cfg.YtdlpPath,
		timeout:   time.Duration(cfg.ToolTimeoutMinutes) * time.Minute,
		argsAudio: cfg.YtdlpArgsAudio,
		argsVideo: cfg.YtdlpArgsVideo,
		logger:    logger,
	}, nil
}

// Probe fetches metadata for a URL without downloading the payload
func (c *Client) Probe(ctx context.Context, url string) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{"--dump-single-json", "--no-warnings"}
	if strings.HasPrefix(url, "file://") {
		args = append(args, "--enable-file-urls")
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.WithFields(logrus.Fields{
		"url":    url,
		"binary": c.binary,
	}).Debug("Probing metadata with yt-dlp")

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp probe failed: %w: %s", err, summarizeStderr(stderr.String()))
	}

	info, err := parseProbeOutput(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}

	return info, nil
}

// Download fetches content plus thumbnail and subtitles into destDir.
// The caller picks the format preset via audio; extraArgs are free-form
// per-item overrides appended last so they win.
func (c *Client) Download(ctx context.Context, url string, audio bool, destDir, extraArgs string) (*DownloadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{
		"--no-playlist",
		"--no-warnings",
		"-o", "download.%(ext)s",
		"--paths", destDir,
		"--write-thumbnail",
		"--convert-thumbnails", "png",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", "en",
		"--convert-subs", "vtt",
	}

	if audio {
		args = append(args, "-f", "bestaudio/best")
		args = appendExtra(args, c.argsAudio)
	} else {
		args = append(args, "-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best")
		args = appendExtra(args, c.argsVideo)
	}
	args = appendExtra(args, extraArgs)

	if strings.HasPrefix(url, "file://") {
		args = append(args, "--enable-file-urls")
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.logger.WithFields(logrus.Fields{
		"url":  url,
		"dest": destDir,
	}).Info("Downloading with yt-dlp")

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp download failed: %w: %s", err, summarizeStderr(stderr.String()))
	}

	result, err := collectDownloadedFiles(destDir)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"content": result.ContentPath,
		"size":    result.Size,
	}).Info("yt-dlp download complete")

	return result, nil
}

// appendExtra splits a free-form argument string on whitespace and appends it
func appendExtra(args []string, extra string) []string {
	if extra == "" {
		return args
	}
	return append(args, strings.Fields(extra)...)
}

// summarizeStderr returns the last non-empty stderr line, enough to diagnose
// without dumping full tool output into error messages
func summarizeStderr(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no stderr output"
}

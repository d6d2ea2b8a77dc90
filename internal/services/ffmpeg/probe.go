package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// MediaInfo holds the container-level metadata ffprobe reports
type MediaInfo struct {
	DurationSeconds int
	Tags            map[string]string // keys lowercased
}

// Tag returns a tag value by lowercase key, or "" when absent
func (m *MediaInfo) Tag(key string) string {
	if m == nil || m.Tags == nil {
		return ""
	}
	return m.Tags[strings.ToLower(key)]
}

// probeOutput mirrors the ffprobe -print_format json shape
type probeOutput struct {
	Format struct {
		Duration string            `json:"duration"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
}

// Probe reads duration and tags from a media file using ffprobe
func (c *Client) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.ffprobeBin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &MediaInfo{Tags: make(map[string]string)}
	for k, v := range out.Format.Tags {
		info.Tags[strings.ToLower(k)] = v
	}

	if out.Format.Duration != "" {
		if f, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
			info.DurationSeconds = int(f)
		}
	}

	return info, nil
}

package ytdlp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/amaumene/mediastash/internal/formats"
)

// probeInfo is the subset of yt-dlp's JSON output the pipeline consumes.
// It is adapted into a typed ProbeResult at this boundary so nothing
// downstream handles a raw map.
type probeInfo struct {
	Type        string  `json:"_type"`
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Uploader    string  `json:"uploader"`
	Channel     string  `json:"channel"`
	Duration    float64 `json:"duration"`
	Extractor   string  `json:"extractor"`
	WebpageURL  string  `json:"webpage_url"`
	UploadDate  string  `json:"upload_date"`

	Entries []json.RawMessage `json:"entries"`

	Formats []struct {
		Vcodec string `json:"vcodec"`
		Acodec string `json:"acodec"`
	} `json:"formats"`
}

func parseProbeOutput(data []byte) (*ProbeResult, error) {
	var info probeInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}

	result := &ProbeResult{
		Title:            info.Title,
		Description:      info.Description,
		Author:           info.Uploader,
		DurationSeconds:  int(info.Duration),
		Extractor:        info.Extractor,
		SourceIdentifier: info.ID,
		CanonicalURL:     info.WebpageURL,
	}

	if result.Author == "" {
		result.Author = info.Channel
	}

	if info.Type == "playlist" || info.Type == "multi_video" || len(info.Entries) > 0 {
		result.IsPlaylist = true
		result.EntryCount = len(info.Entries)
		return result, nil
	}

	if info.UploadDate != "" {
		if t, err := time.Parse("20060102", info.UploadDate); err == nil {
			result.UploadDate = &t
		}
	}

	for _, f := range info.Formats {
		if f.Vcodec != "" && f.Vcodec != "none" {
			result.HasVideoStreams = true
		}
		if f.Acodec != "" && f.Acodec != "none" {
			result.HasAudioStreams = true
		}
	}

	return result, nil
}

// collectDownloadedFiles scans destDir for the content file plus optional
// thumbnail and subtitle side files. The largest known media file is the
// content; yt-dlp leaves exactly one per single-item download.
func collectDownloadedFiles(destDir string) (*DownloadResult, error) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read download directory: %w", err)
	}

	result := &DownloadResult{}
	var contentSize int64

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(destDir, entry.Name())
		ext := formats.Normalize(filepath.Ext(entry.Name()))

		switch {
		case formats.IsMediaExtension(ext):
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.Size() > contentSize {
				result.ContentPath = path
				result.Size = info.Size()
				contentSize = info.Size()
			}
		case ext == ".png" || ext == ".jpg" || ext == ".jpeg" || ext == ".webp":
			if result.ThumbnailPath == "" {
				result.ThumbnailPath = path
			}
		case ext == ".vtt" || ext == ".srt":
			if result.SubtitlePath == "" {
				result.SubtitlePath = path
			}
		}
	}

	if result.ContentPath == "" {
		return nil, fmt.Errorf("no media file found after yt-dlp download")
	}

	return result, nil
}

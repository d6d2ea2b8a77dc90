package controllers

import (
	"context"

	"github.com/amaumene/mediastash/internal/models"
	"github.com/amaumene/mediastash/internal/services/ffmpeg"
	"github.com/amaumene/mediastash/internal/services/htmlmedia"
	"github.com/amaumene/mediastash/internal/services/ytdlp"
)

// Extractor is the capability the extraction tool provides. The real
// implementation shells out to yt-dlp; tests use an in-memory fake.
type Extractor interface {
	Probe(ctx context.Context, url string) (*ytdlp.ProbeResult, error)
	Download(ctx context.Context, url string, audio bool, destDir, extraArgs string) (*ytdlp.DownloadResult, error)
}

// PageScanner finds media embedded in HTML pages the extraction tool
// cannot handle. The real implementation fetches and parses the page;
// tests use an in-memory fake.
type PageScanner interface {
	ExtractMediaURL(ctx context.Context, reference string) (*htmlmedia.PageMedia, error)
}

// Transcoder is the capability the transcoding tool provides. The real
// implementation shells out to ffmpeg/ffprobe; tests use an in-memory fake.
type Transcoder interface {
	Probe(ctx context.Context, path string) (*ffmpeg.MediaInfo, error)
	Transcode(ctx context.Context, inputPath, outputPath string, mediaType models.MediaType, meta ffmpeg.Metadata, extraArgs string) error
	StreamCopy(ctx context.Context, inputPath, outputPath string, meta ffmpeg.Metadata) error
	ConvertThumbnail(ctx context.Context, inputPath, outputPath string) error
	ConvertSubtitle(ctx context.Context, inputPath, outputPath string) error
}

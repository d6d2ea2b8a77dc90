package controllers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/amaumene/mediastash/internal/models"
	"github.com/amaumene/mediastash/internal/services/htmlmedia"
	"github.com/amaumene/mediastash/internal/services/ytdlp"
	"github.com/amaumene/mediastash/internal/utils"
)

// fakeExtractor returns canned probe and download results
type fakeExtractor struct {
	probeResult    *ytdlp.ProbeResult
	probeErr       error
	downloadResult *ytdlp.DownloadResult
	downloadErr    error
}

func (f *fakeExtractor) Probe(ctx context.Context, url string) (*ytdlp.ProbeResult, error) {
	return f.probeResult, f.probeErr
}

func (f *fakeExtractor) Download(ctx context.Context, url string, audio bool, destDir, extraArgs string) (*ytdlp.DownloadResult, error) {
	return f.downloadResult, f.downloadErr
}

var errNoMedia = errors.New("no embedded media elements found")

// fakeScanner returns a canned page scan result
type fakeScanner struct {
	page *htmlmedia.PageMedia
	err  error
}

func (f *fakeScanner) ExtractMediaURL(ctx context.Context, reference string) (*htmlmedia.PageMedia, error) {
	return f.page, f.err
}

func testItemLog(t *testing.T) *utils.ItemLog {
	t.Helper()
	return utils.NewItemLog(filepath.Join(t.TempDir(), "item.log"))
}

func TestPrefetchLocalFile(t *testing.T) {
	prefetch := NewPrefetchController(&fakeExtractor{}, &fakeScanner{err: errNoMedia}, utils.NewLogger("error"))

	result, err := prefetch.Prefetch(context.Background(), "/media/My Episode.mp3", models.StrategyLocalFile, testItemLog(t))
	if err != nil {
		t.Fatalf("Prefetch failed: %v", err)
	}
	if result.Title != "My Episode" {
		t.Errorf("Expected title from filename, got %q", result.Title)
	}
	if result.FileExtension != ".mp3" {
		t.Errorf("Expected extension .mp3, got %q", result.FileExtension)
	}
	if result.HasVideoStreams {
		t.Error("Expected no video streams for an mp3 file")
	}
	if !result.HasAudioStreams {
		t.Error("Expected audio streams for an mp3 file")
	}
}

func TestPrefetchDirectURL(t *testing.T) {
	prefetch := NewPrefetchController(&fakeExtractor{}, &fakeScanner{err: errNoMedia}, utils.NewLogger("error"))

	result, err := prefetch.Prefetch(context.Background(), "https://example.com/shows/finale.mp4?sig=abc", models.StrategyDirect, testItemLog(t))
	if err != nil {
		t.Fatalf("Prefetch failed: %v", err)
	}
	if result.Title != "finale" {
		t.Errorf("Expected title from URL path, got %q", result.Title)
	}
	if !result.HasVideoStreams {
		t.Error("Expected video streams for an mp4 URL")
	}
	if result.CanonicalURL != "https://example.com/shows/finale.mp4?sig=abc" {
		t.Errorf("Expected canonical URL preserved, got %q", result.CanonicalURL)
	}
}

func TestPrefetchExtractionSingleItem(t *testing.T) {
	extractor := &fakeExtractor{
		probeResult: &ytdlp.ProbeResult{
			Title:            "Great Talk",
			Author:           "Speaker",
			DurationSeconds:  1800,
			Extractor:        "youtube",
			SourceIdentifier: "abc123",
			HasVideoStreams:  true,
			HasAudioStreams:  true,
		},
	}
	prefetch := NewPrefetchController(extractor, &fakeScanner{err: errNoMedia}, utils.NewLogger("error"))

	result, err := prefetch.Prefetch(context.Background(), "https://www.youtube.com/watch?v=abc123", models.StrategyExtraction, testItemLog(t))
	if err != nil {
		t.Fatalf("Prefetch failed: %v", err)
	}
	if result.Title != "Great Talk" {
		t.Errorf("Expected probed title, got %q", result.Title)
	}
	if result.DurationSeconds != 1800 {
		t.Errorf("Expected duration 1800, got %d", result.DurationSeconds)
	}
}

func TestPrefetchRejectsPlaylist(t *testing.T) {
	extractor := &fakeExtractor{
		probeResult: &ytdlp.ProbeResult{
			Title:      "Some Playlist",
			IsPlaylist: true,
			EntryCount: 25,
		},
	}
	prefetch := NewPrefetchController(extractor, &fakeScanner{err: errNoMedia}, utils.NewLogger("error"))

	_, err := prefetch.Prefetch(context.Background(), "https://www.youtube.com/playlist?list=xyz", models.StrategyExtraction, testItemLog(t))
	if err == nil {
		t.Fatal("Expected playlist reference to be rejected")
	}
	if CategoryOf(err) != models.ErrPlaylistRejected {
		t.Errorf("Expected playlist_rejected category, got %s", CategoryOf(err))
	}
}

func TestPrefetchProbeFailure(t *testing.T) {
	extractor := &fakeExtractor{probeErr: errors.New("network unreachable")}
	prefetch := NewPrefetchController(extractor, &fakeScanner{err: errNoMedia}, utils.NewLogger("error"))

	_, err := prefetch.Prefetch(context.Background(), "https://example.com/page", models.StrategyExtraction, testItemLog(t))
	if err == nil {
		t.Fatal("Expected error when probe fails")
	}
	if CategoryOf(err) != models.ErrDownloadFailed {
		t.Errorf("Expected download_failed category, got %s", CategoryOf(err))
	}
}

func TestPrefetchFallsBackToPageScan(t *testing.T) {
	extractor := &fakeExtractor{probeErr: errors.New("unsupported URL")}
	scanner := &fakeScanner{page: &htmlmedia.PageMedia{
		MediaURL: "https://example.com/media/episode.mp3",
		Kind:     models.MediaTypeAudio,
		Title:    "Embedded Episode",
	}}
	prefetch := NewPrefetchController(extractor, scanner, utils.NewLogger("error"))

	result, err := prefetch.Prefetch(context.Background(), "https://example.com/some/page", models.StrategyExtraction, testItemLog(t))
	if err != nil {
		t.Fatalf("Expected page scan fallback, got error: %v", err)
	}
	if result.MediaURL != "https://example.com/media/episode.mp3" {
		t.Errorf("Expected embedded media URL, got %q", result.MediaURL)
	}
	if result.Title != "Embedded Episode" {
		t.Errorf("Expected page title, got %q", result.Title)
	}
	if result.FileExtension != ".mp3" {
		t.Errorf("Expected extension from media URL, got %q", result.FileExtension)
	}
	if result.HasVideoStreams {
		t.Error("Expected audio-only for media found in an audio element")
	}
}

func TestPrefetchHTMLPageScansBeforeProbe(t *testing.T) {
	// The extraction tool must not even be probed when the page scan hits
	extractor := &fakeExtractor{probeErr: errors.New("probe should not run")}
	scanner := &fakeScanner{page: &htmlmedia.PageMedia{
		MediaURL: "https://example.com/clip.mp4",
		Kind:     models.MediaTypeVideo,
	}}
	prefetch := NewPrefetchController(extractor, scanner, utils.NewLogger("error"))

	result, err := prefetch.Prefetch(context.Background(), "https://example.com/page.html", models.StrategyExtraction, testItemLog(t))
	if err != nil {
		t.Fatalf("Prefetch failed: %v", err)
	}
	if result.MediaURL != "https://example.com/clip.mp4" {
		t.Errorf("Expected embedded media URL, got %q", result.MediaURL)
	}
	if result.Title != "content" {
		t.Errorf("Expected content fallback title for untitled page, got %q", result.Title)
	}
	if !result.HasVideoStreams {
		t.Error("Expected video streams for media found in a video element")
	}
}

func TestPrefetchUntitledFallback(t *testing.T) {
	extractor := &fakeExtractor{probeResult: &ytdlp.ProbeResult{HasAudioStreams: true}}
	prefetch := NewPrefetchController(extractor, &fakeScanner{err: errNoMedia}, utils.NewLogger("error"))

	result, err := prefetch.Prefetch(context.Background(), "https://example.com/page", models.StrategyExtraction, testItemLog(t))
	if err != nil {
		t.Fatalf("Prefetch failed: %v", err)
	}
	if result.Title != "untitled" {
		t.Errorf("Expected untitled fallback, got %q", result.Title)
	}
}

func TestResolveMediaType(t *testing.T) {
	cases := []struct {
		name      string
		requested models.RequestedType
		video     bool
		audio     bool
		expected  models.MediaType
	}{
		{"explicit audio wins over video streams", models.RequestedTypeAudio, true, true, models.MediaTypeAudio},
		{"explicit video wins over audio only", models.RequestedTypeVideo, false, true, models.MediaTypeVideo},
		{"auto with video streams", models.RequestedTypeAuto, true, true, models.MediaTypeVideo},
		{"auto with audio only", models.RequestedTypeAuto, false, true, models.MediaTypeAudio},
		{"auto with no stream info defaults to video", models.RequestedTypeAuto, false, false, models.MediaTypeVideo},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := &PrefetchResult{HasVideoStreams: tc.video, HasAudioStreams: tc.audio}
			if got := ResolveMediaType(tc.requested, result); got != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, got)
			}
		})
	}
}

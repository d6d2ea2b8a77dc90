package formats

import (
	"testing"

	"github.com/amaumene/mediastash/internal/models"
)

func TestStreamsFromExtension(t *testing.T) {
	hasAudio, hasVideo := StreamsFromExtension(".mp3")
	if !hasAudio || hasVideo {
		t.Errorf("mp3 should be audio-only, got audio=%t video=%t", hasAudio, hasVideo)
	}

	hasAudio, hasVideo = StreamsFromExtension(".mp4")
	if !hasAudio || !hasVideo {
		t.Errorf("mp4 should have both streams, got audio=%t video=%t", hasAudio, hasVideo)
	}

	// Unknown extensions report both streams
	hasAudio, hasVideo = StreamsFromExtension(".bin")
	if !hasAudio || !hasVideo {
		t.Errorf("unknown extension should report both streams, got audio=%t video=%t", hasAudio, hasVideo)
	}
}

func TestIsPassThrough(t *testing.T) {
	cases := []struct {
		ext       string
		mediaType models.MediaType
		want      bool
	}{
		{".mp3", models.MediaTypeAudio, true},
		{".m4a", models.MediaTypeAudio, true},
		{".ogg", models.MediaTypeAudio, false},
		{".flac", models.MediaTypeAudio, false},
		{".mp4", models.MediaTypeVideo, true},
		{".mkv", models.MediaTypeVideo, false},
		{".webm", models.MediaTypeVideo, false},
		// An mp4 container requested as audio still needs extracting
		{".mp4", models.MediaTypeAudio, false},
	}

	for _, c := range cases {
		if got := IsPassThrough(c.ext, c.mediaType); got != c.want {
			t.Errorf("IsPassThrough(%q, %v) = %t, want %t", c.ext, c.mediaType, got, c.want)
		}
	}
}

func TestOutputExtension(t *testing.T) {
	if got := OutputExtension(models.MediaTypeAudio, ".mp3"); got != ".mp3" {
		t.Errorf("pass-through audio should keep extension, got %s", got)
	}
	if got := OutputExtension(models.MediaTypeAudio, ".ogg"); got != ".m4a" {
		t.Errorf("non-pass-through audio should target .m4a, got %s", got)
	}
	if got := OutputExtension(models.MediaTypeVideo, ".mkv"); got != ".mp4" {
		t.Errorf("non-pass-through video should target .mp4, got %s", got)
	}
}

func TestMimeType(t *testing.T) {
	cases := []struct {
		ext  string
		want string
	}{
		{".mp3", "audio/mpeg"},
		{".m4a", "audio/mp4"},
		{".mp4", "video/mp4"},
		{".ogg", "application/octet-stream"},
	}

	for _, c := range cases {
		if got := MimeType(c.ext); got != c.want {
			t.Errorf("MimeType(%q) = %s, want %s", c.ext, got, c.want)
		}
	}
}

func TestHasMediaExtension(t *testing.T) {
	if !HasMediaExtension("/podcasts/episode-42.mp3") {
		t.Error("expected .mp3 path to be a media path")
	}
	if HasMediaExtension("/watch?v=abc123") {
		t.Error("expected bare page path to not be a media path")
	}
}

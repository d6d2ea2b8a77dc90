// Package formats classifies file extensions into media kinds and
// holds the container tables the transcode decision is driven by.
package formats

import (
	"path/filepath"
	"strings"

	"github.com/amaumene/mediastash/internal/models"
)

var audioExtensions = []string{".mp3", ".m4a", ".ogg", ".wav", ".aac", ".flac", ".opus"}

var videoExtensions = []string{".mp4", ".webm", ".mkv", ".avi", ".mov"}

// Containers accepted as final output without re-encoding
var passThroughAudio = []string{".mp3", ".m4a"}

var passThroughVideo = []string{".mp4"}

const (
	// TargetAudioExtension is the container transcoded audio lands in
	TargetAudioExtension = ".m4a"
	// TargetVideoExtension is the container transcoded video lands in
	TargetVideoExtension = ".mp4"
	// ThumbnailExtension is the single accepted thumbnail format
	ThumbnailExtension = ".png"
	// SubtitleExtension is the single accepted subtitle format
	SubtitleExtension = ".vtt"
)

// Normalize lowercases an extension and ensures a leading dot
func Normalize(ext string) string {
	if ext == "" {
		return ""
	}
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func contains(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}

// IsMediaExtension reports whether ext is a known audio or video extension
func IsMediaExtension(ext string) bool {
	ext = Normalize(ext)
	return contains(audioExtensions, ext) || contains(videoExtensions, ext)
}

// StreamsFromExtension infers audio/video stream presence from an extension.
// Unknown extensions report both, the conservative default.
func StreamsFromExtension(ext string) (hasAudio, hasVideo bool) {
	ext = Normalize(ext)
	if contains(audioExtensions, ext) {
		return true, false
	}
	return true, true
}

// IsPassThrough reports whether a container is accepted as final output
// for the given media type without re-encoding
func IsPassThrough(ext string, mediaType models.MediaType) bool {
	ext = Normalize(ext)
	if mediaType == models.MediaTypeAudio {
		return contains(passThroughAudio, ext)
	}
	return contains(passThroughVideo, ext)
}

// TargetExtension returns the container a transcode for mediaType produces
func TargetExtension(mediaType models.MediaType) string {
	if mediaType == models.MediaTypeAudio {
		return TargetAudioExtension
	}
	return TargetVideoExtension
}

// OutputExtension returns the final content extension for a file: the
// original extension when it is pass-through, the transcode target otherwise.
func OutputExtension(mediaType models.MediaType, ext string) string {
	if IsPassThrough(ext, mediaType) {
		return Normalize(ext)
	}
	return TargetExtension(mediaType)
}

// MimeType maps a final content extension to the MIME type served with it
func MimeType(ext string) string {
	switch Normalize(ext) {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

// HasMediaExtension reports whether a URL path or file path ends in a
// known media extension
func HasMediaExtension(path string) bool {
	return IsMediaExtension(filepath.Ext(path))
}

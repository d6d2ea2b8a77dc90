package models

// Status represents the current pipeline state of a media item
type Status string

const (
	StatusPrefetching Status = "prefetching"
	StatusDownloading Status = "downloading"
	StatusProcessing  Status = "processing"
	StatusReady       Status = "ready"
	StatusError       Status = "error"
)

// MediaType represents the resolved type of a media item
type MediaType string

const (
	MediaTypeAudio MediaType = "audio"
	MediaTypeVideo MediaType = "video"
)

// RequestedType represents the type the caller asked for
type RequestedType string

const (
	RequestedTypeAuto  RequestedType = "auto"
	RequestedTypeAudio RequestedType = "audio"
	RequestedTypeVideo RequestedType = "video"
)

// Strategy represents the fetch mechanism chosen for a reference
type Strategy string

const (
	StrategyLocalFile  Strategy = "local_file"
	StrategyDirect     Strategy = "direct"
	StrategyExtraction Strategy = "extraction"
)

// ErrorCategory is the stable error classification stored on failed items
type ErrorCategory string

const (
	ErrPlaylistRejected ErrorCategory = "playlist_rejected"
	ErrDownloadFailed   ErrorCategory = "download_failed"
	ErrTranscodeFailed  ErrorCategory = "transcode_failed"
	ErrFilesystemFailed ErrorCategory = "filesystem_failed"
	ErrInvalidReference ErrorCategory = "invalid_reference"

	// ErrStalled marks items failed by the watchdog after sitting in an
	// in-flight state too long, not by a pipeline stage
	ErrStalled ErrorCategory = "stalled"
)

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Transcode failure policies
const (
	TranscodeFailureCopy  = "copy"  // degrade to a byte copy of the original
	TranscodeFailureError = "error" // fail the item
)

// Config holds all application configuration
type Config struct {
	// Paths
	MediaDir      string // final storage root; scratch dirs and logs live under it
	DatabaseFile  string // $CONFIG_DIR/mediastash.db
	BlocklistFile string // $CONFIG_DIR/blocklist.txt

	// External tools
	YtdlpPath          string
	FfmpegPath         string
	FfprobePath        string
	ToolTimeoutMinutes int // ceiling on one extraction or transcode invocation

	// Argument presets
	YtdlpArgsAudio  string
	YtdlpArgsVideo  string
	FfmpegArgsAudio string
	FfmpegArgsVideo string

	// Slug derivation
	SlugMaxWords int
	SlugMaxChars int

	// Pipeline
	WorkerCount         int
	OnTranscodeFailure  string // "copy" or "error"
	ScratchMaxAgeHours  int    // scratch dirs older than this are swept
	StuckTimeoutMinutes int    // in-flight items idle longer than this are failed

	// Server
	ServerPort string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	viper.SetDefault("YTDLP_PATH", "yt-dlp")
	viper.SetDefault("FFMPEG_PATH", "ffmpeg")
	viper.SetDefault("FFPROBE_PATH", "ffprobe")
	viper.SetDefault("TOOL_TIMEOUT_MINUTES", 30)
	viper.SetDefault("SLUG_MAX_WORDS", 6)
	viper.SetDefault("SLUG_MAX_CHARS", 40)
	viper.SetDefault("WORKER_COUNT", 2)
	viper.SetDefault("ON_TRANSCODE_FAILURE", TranscodeFailureCopy)
	viper.SetDefault("SCRATCH_MAX_AGE_HOURS", 24)
	viper.SetDefault("STUCK_TIMEOUT_MINUTES", 60)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "mediastash")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	mediaDir := viper.GetString("MEDIA_DIR")
	if mediaDir == "" {
		mediaDir = filepath.Join(configDir, "media")
	} else {
		absPath, err := filepath.Abs(mediaDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for MEDIA_DIR: %w", err)
		}
		mediaDir = absPath
	}

	if err := os.MkdirAll(mediaDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	config := &Config{
		MediaDir:      mediaDir,
		DatabaseFile:  filepath.Join(configDir, "mediastash.db"),
		BlocklistFile: filepath.Join(configDir, "blocklist.txt"),

		YtdlpPath:          viper.GetString("YTDLP_PATH"),
		FfmpegPath:         viper.GetString("FFMPEG_PATH"),
		FfprobePath:        viper.GetString("FFPROBE_PATH"),
		ToolTimeoutMinutes: viper.GetInt("TOOL_TIMEOUT_MINUTES"),

		YtdlpArgsAudio:  viper.GetString("YTDLP_ARGS_AUDIO"),
		YtdlpArgsVideo:  viper.GetString("YTDLP_ARGS_VIDEO"),
		FfmpegArgsAudio: viper.GetString("FFMPEG_ARGS_AUDIO"),
		FfmpegArgsVideo: viper.GetString("FFMPEG_ARGS_VIDEO"),

		SlugMaxWords: viper.GetInt("SLUG_MAX_WORDS"),
		SlugMaxChars: viper.GetInt("SLUG_MAX_CHARS"),

		WorkerCount:         viper.GetInt("WORKER_COUNT"),
		OnTranscodeFailure:  viper.GetString("ON_TRANSCODE_FAILURE"),
		ScratchMaxAgeHours:  viper.GetInt("SCRATCH_MAX_AGE_HOURS"),
		StuckTimeoutMinutes: viper.GetInt("STUCK_TIMEOUT_MINUTES"),

		ServerPort: viper.GetString("SERVER_PORT"),

		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	if config.OnTranscodeFailure != TranscodeFailureCopy && config.OnTranscodeFailure != TranscodeFailureError {
		return nil, fmt.Errorf("ON_TRANSCODE_FAILURE must be %q or %q", TranscodeFailureCopy, TranscodeFailureError)
	}
	if config.WorkerCount < 1 {
		return nil, fmt.Errorf("WORKER_COUNT must be at least 1")
	}

	return config, nil
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime tuning for the capture backend.
type Config struct {
	Capture CaptureConfig
	Session SessionConfig
}

type CaptureConfig struct {
	FFmpegCommand    string
	AudioInputFormat string
	AudioDevice      string
	VideoInputFormat string
	Display          string
	FrameRate        int
}

type SessionConfig struct {
	FlushInterval time.Duration
	Extension     string
}

// Load resolves configuration from environment variables and defaults.
func Load() (Config, error) {
	cfg := Config{
		Capture: CaptureConfig{
			FFmpegCommand:    envOrDefault("CAPDECK_FFMPEG_COMMAND", "ffmpeg"),
			AudioInputFormat: envOrDefault("CAPDECK_AUDIO_INPUT_FORMAT", "pulse"),
			AudioDevice:      envOrDefault("CAPDECK_AUDIO_INPUT_DEVICE", "default"),
			VideoInputFormat: envOrDefault("CAPDECK_VIDEO_INPUT_FORMAT", "v4l2"),
			Display:          envOrDefault("CAPDECK_DISPLAY", firstNonEmpty(os.Getenv("DISPLAY"), ":0")),
			FrameRate:        envOrDefaultInt("CAPDECK_FRAME_RATE", 30),
		},
		Session: SessionConfig{
			FlushInterval: time.Duration(envOrDefaultInt("CAPDECK_FLUSH_INTERVAL_MS", 1000)) * time.Millisecond,
			Extension:     strings.TrimPrefix(envOrDefault("CAPDECK_ARTIFACT_EXT", "webm"), "."),
		},
	}

	if cfg.Capture.FrameRate <= 0 {
		cfg.Capture.FrameRate = 30
	}
	// Flush at least once per second so a crash loses at most one interval.
	if cfg.Session.FlushInterval <= 0 || cfg.Session.FlushInterval > time.Second {
		cfg.Session.FlushInterval = time.Second
	}
	if cfg.Session.Extension == "" {
		cfg.Session.Extension = "webm"
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

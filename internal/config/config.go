package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the chatbot service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AudioDir          string
	AudioRetention    time.Duration
	SweepInterval     time.Duration
	SweepErrorBackoff time.Duration
	MaxUploadBytes    int64

	EngineProvider     string
	RecognizerProvider string
	DialogURL          string
	RecognizerURL      string
	SynthesizerWSURL   string
	EngineWarmupDelay  time.Duration

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":5000"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "chatbot"),
		AudioDir:         envOrDefault("APP_AUDIO_DIR", filepath.Join(os.TempDir(), "chatbot_audio")),
		// Generated audio is served by reference for one hour.
		AudioRetention:    time.Hour,
		SweepInterval:     5 * time.Minute,
		SweepErrorBackoff: time.Minute,
		MaxUploadBytes:    16 << 20,
		EngineProvider:    envOrDefault("ENGINE_PROVIDER", "auto"),
		// Empty follows ENGINE_PROVIDER; "google" selects Cloud Speech.
		RecognizerProvider: trimmedEnv("ASR_PROVIDER"),
		DialogURL:          trimmedEnv("DIALOG_ENGINE_URL"),
		RecognizerURL:      trimmedEnv("ASR_ENGINE_URL"),
		SynthesizerWSURL:   trimmedEnv("TTS_ENGINE_WS_URL"),
		DatabaseURL:        trimmedEnv("DATABASE_URL"),
		ShutdownTimeout:    15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AudioRetention, err = durationFromEnv("APP_AUDIO_RETENTION", cfg.AudioRetention)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval, err = durationFromEnv("APP_SWEEP_INTERVAL", cfg.SweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepErrorBackoff, err = durationFromEnv("APP_SWEEP_ERROR_BACKOFF", cfg.SweepErrorBackoff)
	if err != nil {
		return Config{}, err
	}
	cfg.EngineWarmupDelay, err = durationFromEnv("APP_ENGINE_WARMUP_DELAY", cfg.EngineWarmupDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxUploadBytes, err = int64FromEnv("APP_MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	if err != nil {
		return Config{}, err
	}

	if cfg.AudioRetention <= 0 {
		return Config{}, fmt.Errorf("APP_AUDIO_RETENTION must be positive")
	}
	if cfg.SweepInterval < time.Second {
		return Config{}, fmt.Errorf("APP_SWEEP_INTERVAL must be at least 1s")
	}
	if cfg.SweepErrorBackoff <= 0 {
		return Config{}, fmt.Errorf("APP_SWEEP_ERROR_BACKOFF must be positive")
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("APP_MAX_UPLOAD_BYTES must be positive")
	}
	if cfg.EngineWarmupDelay < 0 {
		return Config{}, fmt.Errorf("APP_ENGINE_WARMUP_DELAY must be >= 0")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func int64FromEnv(key string, fallback int64) (int64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

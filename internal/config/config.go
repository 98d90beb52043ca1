package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/voskhod/whisperd/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port         string
	DBPath       string
	UploadsDir   string
	OutputsDir   string
	MaxFileSize  string
	WhisperBin   string
	WhisperModel string
	FFmpegBin    string
	FFprobeBin   string
	GeminiAPIKey string
	GeminiModel  string
	Concurrency  int
	HardTimeout  time.Duration
	LogLevel     string
	LogFormat    string
}

// Load loads configuration from the environment with defaults. A .env file
// in the working directory is read first, if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:         getEnv("PORT", constants.DefaultPort),
		DBPath:       getEnv("DB_PATH", constants.DefaultDBPath),
		UploadsDir:   getEnv("UPLOADS_DIR", constants.DefaultUploadsDir),
		OutputsDir:   getEnv("OUTPUTS_DIR", constants.DefaultOutputsDir),
		MaxFileSize:  getEnv("MAX_FILE_SIZE", constants.DefaultMaxFileSize),
		WhisperBin:   getEnv("WHISPER_BIN", constants.DefaultWhisperBin),
		WhisperModel: getEnv("WHISPER_MODEL", ""),
		FFmpegBin:    getEnv("FFMPEG_BIN", constants.DefaultFFmpegBin),
		FFprobeBin:   getEnv("FFPROBE_BIN", constants.DefaultFFprobeBin),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", constants.DefaultGeminiModel),
		Concurrency:  getEnvInt("WORKER_CONCURRENCY", constants.DefaultConcurrency),
		HardTimeout:  getEnvDuration("JOB_TIMEOUT", constants.DefaultHardTimeout),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errs []string

	if c.Port == "" {
		errs = append(errs, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errs = append(errs, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errs = append(errs, "DB_PATH cannot be empty")
	}
	if c.UploadsDir == "" {
		errs = append(errs, "UPLOADS_DIR cannot be empty")
	}
	if c.OutputsDir == "" {
		errs = append(errs, "OUTPUTS_DIR cannot be empty")
	}

	if _, err := c.MaxFileSizeBytes(); err != nil {
		errs = append(errs, fmt.Sprintf("MAX_FILE_SIZE is invalid: %v", err))
	}

	if c.Concurrency < 1 {
		errs = append(errs, fmt.Sprintf("WORKER_CONCURRENCY must be at least 1, got: %d", c.Concurrency))
	}
	if c.HardTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("JOB_TIMEOUT must be at least 1s, got: %s", c.HardTimeout))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// MaxFileSizeBytes converts the human-readable MAX_FILE_SIZE to bytes.
// Accepts a plain byte count or a KB/MB/GB suffix.
func (c *Config) MaxFileSizeBytes() (int64, error) {
	size := strings.ToUpper(strings.TrimSpace(c.MaxFileSize))
	multiplier := int64(1)

	switch {
	case strings.HasSuffix(size, "GB"):
		multiplier = 1024 * 1024 * 1024
		size = strings.TrimSuffix(size, "GB")
	case strings.HasSuffix(size, "MB"):
		multiplier = 1024 * 1024
		size = strings.TrimSuffix(size, "MB")
	case strings.HasSuffix(size, "KB"):
		multiplier = 1024
		size = strings.TrimSuffix(size, "KB")
	}

	n, err := strconv.ParseInt(strings.TrimSpace(size), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse size %q", c.MaxFileSize)
	}
	if n <= 0 {
		return 0, fmt.Errorf("size must be positive, got %q", c.MaxFileSize)
	}
	return n * multiplier, nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

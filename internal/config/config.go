package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DatabasePath string
	LogLevel     string

	// StorageBackend is "s3" or "memory".
	StorageBackend string

	// S3
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3UseSSL          bool

	// Upload limits
	MaxFileSize int64

	// Analysis
	Workers            int
	StageTimeout       time.Duration
	OCRTimeout         time.Duration
	RunTimeout         time.Duration
	CacheSize          int
	MinNativeTextChars int

	// OCR
	TesseractPath string
	OCRLanguages  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DatabasePath:      getEnv("DATABASE_PATH", "data/documents.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		StorageBackend:    getEnv("STORAGE_BACKEND", "s3"),
		S3Endpoint:        getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
		S3BucketName:      getEnv("S3_BUCKET_NAME", "documents"),
		S3UseSSL:          getEnv("S3_USE_SSL", "false") == "true",
		TesseractPath:     getEnv("TESSERACT_PATH", "tesseract"),
		OCRLanguages:      getEnv("OCR_LANGUAGES", "eng"),
	}

	var err error
	if cfg.MaxFileSize, err = getInt64("MAX_FILE_SIZE", 50<<20); err != nil {
		return nil, err
	}
	if cfg.Workers, err = getInt("ANALYSIS_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = getInt("ANALYSIS_CACHE_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.MinNativeTextChars, err = getInt("MIN_NATIVE_TEXT_CHARS", 50); err != nil {
		return nil, err
	}
	if cfg.StageTimeout, err = getDuration("STAGE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.OCRTimeout, err = getDuration("OCR_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = getDuration("RUN_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("ANALYSIS_WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	if c.StageTimeout <= 0 || c.OCRTimeout <= 0 || c.RunTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.StorageBackend != "s3" && c.StorageBackend != "memory" {
		return fmt.Errorf("STORAGE_BACKEND must be s3 or memory, got %q", c.StorageBackend)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("ANALYSIS_CACHE_SIZE must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getInt64(key string, defaultValue int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

// getDuration accepts Go duration strings ("45s") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

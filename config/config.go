package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable names.
const (
	EnvMaxFileBytes      = "PDFOCR_MAX_FILE_BYTES"
	EnvTesseractPath     = "PDFOCR_TESSERACT_PATH"
	EnvPdftoppmPath      = "PDFOCR_PDFTOPPM_PATH"
	EnvLanguage          = "PDFOCR_LANGUAGE"
	EnvImageFormat       = "PDFOCR_IMAGE_FORMAT"
	EnvDPI               = "PDFOCR_DPI"
	EnvWorkspaceDir      = "PDFOCR_WORKSPACE_DIR"
	EnvOutputDir         = "PDFOCR_OUTPUT_DIR"
	EnvSkipFailedPages   = "PDFOCR_SKIP_FAILED_PAGES"
	EnvStaleWorkspaceAge = "PDFOCR_STALE_WORKSPACE_AGE"
	EnvJobTimeout        = "PDFOCR_JOB_TIMEOUT"
	EnvLogLevel          = "PDFOCR_LOG_LEVEL"
)

// Defaults applied when a variable is unset or invalid.
const (
	// DefaultMaxFileBytes is the default maximum accepted file size (50 MiB).
	DefaultMaxFileBytes int64 = 50 << 20

	DefaultTesseractPath     = "tesseract"
	DefaultPdftoppmPath      = "pdftoppm"
	DefaultLanguage          = "vie"
	DefaultImageFormat       = "jpeg"
	DefaultDPI               = 200
	DefaultWorkspaceDir      = "temp_images"
	DefaultOutputDir         = "converted"
	DefaultStaleWorkspaceAge = time.Hour

	maxDPI = 1200
)

// imageFormats are the raster formats pdftoppm can emit.
var imageFormats = map[string]bool{
	"png":  true,
	"jpeg": true,
	"tiff": true,
}

// Config holds runtime configuration sourced from environment variables.
// It is read once at startup and treated as read-only afterwards.
type Config struct {
	MaxFileSizeBytes int64

	TesseractPath string
	PdftoppmPath  string
	Language      string
	ImageFormat   string
	DPI           int

	WorkspaceDir string
	OutputDir    string

	// SkipFailedPages turns a per-page recognition failure into an empty
	// paragraph instead of failing the job.
	SkipFailedPages bool

	// StaleWorkspaceAge is the minimum age of a leftover workspace removed
	// by the startup sweep. Zero disables the sweep.
	StaleWorkspaceAge time.Duration

	// JobTimeout bounds a single conversion. Zero means no limit.
	JobTimeout time.Duration

	LogLevel slog.Level
}

// MaxFileSizeMB returns the configured limit in whole megabytes.
func (c *Config) MaxFileSizeMB() int64 {
	return c.MaxFileSizeBytes >> 20
}

// Default returns a Config populated with defaults only.
func Default() *Config {
	return &Config{
		MaxFileSizeBytes:  DefaultMaxFileBytes,
		TesseractPath:     DefaultTesseractPath,
		PdftoppmPath:      DefaultPdftoppmPath,
		Language:          DefaultLanguage,
		ImageFormat:       DefaultImageFormat,
		DPI:               DefaultDPI,
		WorkspaceDir:      DefaultWorkspaceDir,
		OutputDir:         DefaultOutputDir,
		StaleWorkspaceAge: DefaultStaleWorkspaceAge,
		LogLevel:          slog.LevelInfo,
	}
}

// Load reads Config from environment variables, falling back to defaults for
// missing or invalid values.
func Load() *Config {
	cfg := Default()

	if v := os.Getenv(EnvMaxFileBytes); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxFileSizeBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvTesseractPath)); v != "" {
		cfg.TesseractPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPdftoppmPath)); v != "" {
		cfg.PdftoppmPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLanguage)); v != "" {
		cfg.Language = v
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv(EnvImageFormat))); imageFormats[v] {
		cfg.ImageFormat = v
	} else if v == "jpg" {
		cfg.ImageFormat = "jpeg"
	}
	if v := os.Getenv(EnvDPI); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxDPI {
			cfg.DPI = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkspaceDir)); v != "" {
		cfg.WorkspaceDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutputDir)); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv(EnvSkipFailedPages); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SkipFailedPages = b
		}
	}
	if v := os.Getenv(EnvStaleWorkspaceAge); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.StaleWorkspaceAge = d
		}
	}
	if v := os.Getenv(EnvJobTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.JobTimeout = d
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(v)); err == nil {
			cfg.LogLevel = lvl
		}
	}
	return cfg
}

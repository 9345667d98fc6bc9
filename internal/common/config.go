package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	OCR      OCRConfig      `toml:"ocr"`
	PDF      PDFConfig      `toml:"pdf"`
	LLM      LLMConfig      `toml:"llm"`
	Storage  StorageConfig  `toml:"storage"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string        `toml:"dsn"`
	MaxConns        int32         `toml:"max_conns"`
	MinConns        int32         `toml:"min_conns"`
	MaxConnLifetime time.Duration `toml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `toml:"max_conn_idle_time"`
	DialTimeout     time.Duration `toml:"dial_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr       string `toml:"grpc_addr"`
	HTTPAddr       string `toml:"http_addr"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine            string `toml:"engine"` // tesseract | documentai
	Tesseract         string `toml:"tesseract"`
	TesseractLang     string `toml:"tesseract_lang"`
	TessdataDir       string `toml:"tessdata_dir"`
	PSM               int    `toml:"psm"`
	StrictImageDecode bool   `toml:"strict_image_decode"`

	DocumentAIProject   string `toml:"documentai_project"`
	DocumentAILocation  string `toml:"documentai_location"`
	DocumentAIProcessor string `toml:"documentai_processor"`
}

// PDFConfig holds rasterization configuration
type PDFConfig struct {
	Pdftoppm string `toml:"pdftoppm"`
	DPI      int    `toml:"dpi"`
	MaxPages int    `toml:"max_pages"`
	Workers  int    `toml:"workers"`
	Mode     string `toml:"mode"` // ocr | auto
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider    string        `toml:"provider"` // openai | vertex | none
	Model       string        `toml:"model"`
	APIKey      string        `toml:"api_key"`
	BaseURL     string        `toml:"base_url"`
	Temperature float32       `toml:"temperature"`
	Timeout     time.Duration `toml:"timeout"`
	RateLimit   float64       `toml:"rate_limit"` // requests per second, 0 = unlimited

	VertexProject  string `toml:"vertex_project"`
	VertexLocation string `toml:"vertex_location"`
}

// StorageConfig holds the optional archive of original uploads
type StorageConfig struct {
	Backend     string `toml:"backend"` // "" | s3 | gcs
	Bucket      string `toml:"bucket"`
	S3Endpoint  string `toml:"s3_endpoint"`
	S3AccessKey string `toml:"s3_access_key"`
	S3SecretKey string `toml:"s3_secret_key"`
	S3UseSSL    bool   `toml:"s3_use_ssl"`
}

// PipelineConfig holds per-file processing configuration
type PipelineConfig struct {
	ProcessTimeout time.Duration `toml:"process_timeout"`
	ArchiveWorkers int           `toml:"archive_workers"`
	Enrich         bool          `toml:"enrich"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             "file:docintake.db",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr:       ":9090",
			HTTPAddr:       ":8080",
			MaxUploadBytes: 32 << 20,
		},
		OCR: OCRConfig{
			Engine:             "tesseract",
			Tesseract:          "tesseract",
			TesseractLang:      "por",
			DocumentAILocation: "us",
		},
		PDF: PDFConfig{
			Pdftoppm: "pdftoppm",
			DPI:      200,
			Workers:  1,
			Mode:     "ocr",
		},
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-3.5-turbo-1106",
			BaseURL:        "https://api.openai.com/v1",
			Temperature:    0.0,
			Timeout:        45 * time.Second,
			VertexLocation: "us-central1",
		},
		Pipeline: PipelineConfig{
			ProcessTimeout: 3 * time.Minute,
			ArchiveWorkers: 1,
			Enrich:         true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from defaults, an optional TOML file
// (path argument or DOCINTAKE_CONFIG) and environment variables, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv("DOCINTAKE_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("read config file %q", path), err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("parse config file %q", path), err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.MaxUploadBytes = int64(getEnvAsInt("MAX_UPLOAD_BYTES", int(c.Server.MaxUploadBytes)))

	c.OCR.Engine = getEnv("OCR_ENGINE", c.OCR.Engine)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.TesseractLang = getEnv("TESSERACT_LANG", c.OCR.TesseractLang)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.PSM = getEnvAsInt("TESSERACT_PSM", c.OCR.PSM)
	c.OCR.StrictImageDecode = getEnvAsBool("OCR_STRICT_IMAGE_DECODE", c.OCR.StrictImageDecode)
	c.OCR.DocumentAIProject = getEnv("DOCUMENTAI_PROJECT", c.OCR.DocumentAIProject)
	c.OCR.DocumentAILocation = getEnv("DOCUMENTAI_LOCATION", c.OCR.DocumentAILocation)
	c.OCR.DocumentAIProcessor = getEnv("DOCUMENTAI_PROCESSOR", c.OCR.DocumentAIProcessor)

	c.PDF.Pdftoppm = getEnv("PDFTOPPM_BIN", c.PDF.Pdftoppm)
	c.PDF.DPI = getEnvAsInt("PDF_DPI", c.PDF.DPI)
	c.PDF.MaxPages = getEnvAsInt("PDF_MAX_PAGES", c.PDF.MaxPages)
	c.PDF.Workers = getEnvAsInt("PDF_WORKERS", c.PDF.Workers)
	c.PDF.Mode = getEnv("PDF_MODE", c.PDF.Mode)

	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("OPENAI_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", c.LLM.Timeout)
	c.LLM.RateLimit = float64(getEnvAsFloat32("LLM_RATE_LIMIT", float32(c.LLM.RateLimit)))
	c.LLM.VertexProject = getEnv("VERTEX_PROJECT", c.LLM.VertexProject)
	c.LLM.VertexLocation = getEnv("VERTEX_LOCATION", c.LLM.VertexLocation)

	c.Storage.Backend = getEnv("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.Bucket = getEnv("STORAGE_BUCKET", c.Storage.Bucket)
	c.Storage.S3Endpoint = getEnv("S3_ENDPOINT", c.Storage.S3Endpoint)
	c.Storage.S3AccessKey = getEnv("S3_ACCESS_KEY_ID", c.Storage.S3AccessKey)
	c.Storage.S3SecretKey = getEnv("S3_SECRET_ACCESS_KEY", c.Storage.S3SecretKey)
	c.Storage.S3UseSSL = getEnvAsBool("S3_USE_SSL", c.Storage.S3UseSSL)

	c.Pipeline.ProcessTimeout = getEnvAsDuration("PROCESS_TIMEOUT", c.Pipeline.ProcessTimeout)
	c.Pipeline.ArchiveWorkers = getEnvAsInt("ARCHIVE_WORKERS", c.Pipeline.ArchiveWorkers)
	c.Pipeline.Enrich = getEnvAsBool("ENRICH", c.Pipeline.Enrich)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// EnrichmentEnabled reports whether an enrichment backend can be built from the config.
func (c *Config) EnrichmentEnabled() bool {
	if !c.Pipeline.Enrich {
		return false
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "openai":
		return c.LLM.APIKey != ""
	case "vertex":
		return c.LLM.VertexProject != ""
	default:
		return false
	}
}

// SlogLevel converts Log.Level into a slog.Level (info on unknown input).
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError(CodeConfig, "DB_URL is required", ErrInvalidInput)
	}
	switch strings.ToLower(c.OCR.Engine) {
	case "tesseract":
	case "documentai":
		if c.OCR.DocumentAIProject == "" || c.OCR.DocumentAIProcessor == "" {
			return NewAppError(CodeConfig, "DOCUMENTAI_PROJECT and DOCUMENTAI_PROCESSOR are required for the documentai engine", ErrInvalidInput)
		}
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown OCR_ENGINE %q", c.OCR.Engine), ErrInvalidInput)
	}
	switch strings.ToLower(c.PDF.Mode) {
	case "ocr", "auto":
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown PDF_MODE %q", c.PDF.Mode), ErrInvalidInput)
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "vertex", "none", "":
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown LLM_PROVIDER %q", c.LLM.Provider), ErrInvalidInput)
	}
	switch strings.ToLower(c.Storage.Backend) {
	case "":
	case "s3":
		if c.Storage.S3Endpoint == "" || c.Storage.Bucket == "" {
			return NewAppError(CodeConfig, "S3_ENDPOINT and STORAGE_BUCKET are required for the s3 backend", ErrInvalidInput)
		}
	case "gcs":
		if c.Storage.Bucket == "" {
			return NewAppError(CodeConfig, "STORAGE_BUCKET is required for the gcs backend", ErrInvalidInput)
		}
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown STORAGE_BACKEND %q", c.Storage.Backend), ErrInvalidInput)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return NewAppError(CodeConfig, "MAX_UPLOAD_BYTES must be positive", ErrInvalidInput)
	}
	v := NewValidator().
		Field("PDF_DPI", c.PDF.DPI, IntRange(50, 1200)).
		Field("PDF_WORKERS", c.PDF.Workers, IntRange(1, 64)).
		Field("ARCHIVE_WORKERS", c.Pipeline.ArchiveWorkers, IntRange(1, 64))
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	OCR      OCRConfig      `toml:"ocr"`
	LLM      LLMConfig      `toml:"llm"`
	Queue    QueueConfig    `toml:"queue"`
	Watch    WatchConfig    `toml:"watch"`
	LogLevel string         `toml:"log_level"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string   `toml:"dsn"`
	MaxConns        int32    `toml:"max_conns"`
	MinConns        int32    `toml:"min_conns"`
	MaxConnLifetime Duration `toml:"max_conn_lifetime"`
	MaxConnIdleTime Duration `toml:"max_conn_idle_time"`
	DialTimeout     Duration `toml:"dial_timeout"`
}

// ServerConfig holds the health endpoint used by serve mode
type ServerConfig struct {
	GRPCAddr string `toml:"grpc_addr"`
}

// OCRConfig holds text recovery configuration. An empty TesseractCmd disables
// the local engine; an empty VisionAPIKey disables the cloud backend.
type OCRConfig struct {
	TesseractCmd  string   `toml:"tesseract_cmd"`
	TesseractLang string   `toml:"tesseract_lang"`
	TessdataDir   string   `toml:"tessdata_dir"`
	PSM           int      `toml:"psm"`
	OEM           int      `toml:"oem"`
	PdftotextCmd  string   `toml:"pdftotext_cmd"`
	PdfinfoCmd    string   `toml:"pdfinfo_cmd"`
	MaxPages      int      `toml:"max_pages"`
	VisionAPIKey  string   `toml:"vision_api_key"`
	VisionURL     string   `toml:"vision_url"`
	VisionRPS     float64  `toml:"vision_rps"`
	Timeout       Duration `toml:"timeout"`
	LocalTimeout  Duration `toml:"local_timeout"`
}

// LLMConfig holds the intelligent-extraction service configuration
type LLMConfig struct {
	Provider          string   `toml:"provider"`
	APIKey            string   `toml:"api_key"`
	Model             string   `toml:"model"`
	BaseURL           string   `toml:"base_url"`
	Temperature       float32  `toml:"temperature"`
	MaxTokens         int      `toml:"max_tokens"`
	Timeout           Duration `toml:"timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// QueueConfig sizes the async worker pool
type QueueConfig struct {
	Workers    int      `toml:"workers"`
	Size       int      `toml:"size"`
	JobTimeout Duration `toml:"job_timeout"`
}

// WatchConfig configures the inbox directory watched by serve mode
type WatchConfig struct {
	Dir         string   `toml:"dir"`
	Debounce    Duration `toml:"debounce"`
	InitialScan bool     `toml:"initial_scan"`
}

// Duration decodes "5s"-style strings from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             "file:rx.db",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: Duration{30 * time.Minute},
			MaxConnIdleTime: Duration{5 * time.Minute},
			DialTimeout:     Duration{3 * time.Second},
		},
		Server: ServerConfig{
			GRPCAddr: "127.0.0.1:50051",
		},
		OCR: OCRConfig{
			TesseractCmd:  "tesseract",
			TesseractLang: "eng",
			PdftotextCmd:  "pdftotext",
			PdfinfoCmd:    "pdfinfo",
			Timeout:       Duration{5 * time.Second},
			LocalTimeout:  Duration{30 * time.Second},
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Temperature: 0.3,
			MaxTokens:   500,
			Timeout:     Duration{10 * time.Second},
		},
		Queue: QueueConfig{
			Workers:    2,
			Size:       16,
			JobTimeout: Duration{2 * time.Minute},
		},
		Watch: WatchConfig{
			Debounce:    Duration{500 * time.Millisecond},
			InitialScan: true,
		},
		LogLevel: "info",
	}
}

// LoadConfig builds the configuration from defaults, an optional TOML file and
// the environment (which wins). A .env file in the working directory is read
// first when present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, NewAppError("CONFIG_ERROR", "read .env", err)
	}

	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv("RX_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read config file", err)
		}
		if err := toml.Unmarshal(b, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("parse %s", path), err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.Database.DSN = getEnv("RX_DATABASE_DSN", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("RX_DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("RX_DB_MIN_CONNS", c.Database.MinConns)
	c.Database.DialTimeout.Duration = getEnvAsDuration("RX_DB_DIAL_TIMEOUT", c.Database.DialTimeout.Duration)

	c.Server.GRPCAddr = getEnv("RX_GRPC_ADDR", c.Server.GRPCAddr)

	c.OCR.TesseractCmd = getEnv("RX_TESSERACT_CMD", c.OCR.TesseractCmd)
	c.OCR.TesseractLang = getEnv("RX_TESSERACT_LANG", c.OCR.TesseractLang)
	c.OCR.TessdataDir = getEnv("RX_TESSDATA_DIR", getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir))
	c.OCR.PdftotextCmd = getEnv("RX_PDFTOTEXT_CMD", c.OCR.PdftotextCmd)
	c.OCR.PdfinfoCmd = getEnv("RX_PDFINFO_CMD", c.OCR.PdfinfoCmd)
	c.OCR.MaxPages = getEnvAsInt("RX_OCR_MAX_PAGES", c.OCR.MaxPages)
	c.OCR.VisionAPIKey = getEnv("GOOGLE_VISION_API_KEY", c.OCR.VisionAPIKey)
	c.OCR.VisionURL = getEnv("RX_VISION_URL", c.OCR.VisionURL)
	c.OCR.VisionRPS = getEnvAsFloat64("RX_VISION_RPS", c.OCR.VisionRPS)
	c.OCR.Timeout.Duration = getEnvAsDuration("RX_OCR_TIMEOUT", c.OCR.Timeout.Duration)
	c.OCR.LocalTimeout.Duration = getEnvAsDuration("RX_OCR_LOCAL_TIMEOUT", c.OCR.LocalTimeout.Duration)

	c.LLM.Provider = strings.ToLower(getEnv("RX_LLM_PROVIDER", c.LLM.Provider))
	c.LLM.APIKey = getEnv(providerKeyEnv(c.LLM.Provider), c.LLM.APIKey)
	c.LLM.APIKey = getEnv("RX_LLM_API_KEY", c.LLM.APIKey)
	c.LLM.Model = getEnv("RX_LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("RX_LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("RX_LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.MaxTokens = getEnvAsInt("RX_LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.Timeout.Duration = getEnvAsDuration("RX_LLM_TIMEOUT", c.LLM.Timeout.Duration)
	c.LLM.RequestsPerSecond = getEnvAsFloat64("RX_LLM_RPS", c.LLM.RequestsPerSecond)

	c.Queue.Workers = getEnvAsInt("RX_QUEUE_WORKERS", c.Queue.Workers)
	c.Queue.Size = getEnvAsInt("RX_QUEUE_SIZE", c.Queue.Size)
	c.Queue.JobTimeout.Duration = getEnvAsDuration("RX_QUEUE_JOB_TIMEOUT", c.Queue.JobTimeout.Duration)

	c.Watch.Dir = getEnv("RX_WATCH_DIR", c.Watch.Dir)
	c.Watch.Debounce.Duration = getEnvAsDuration("RX_WATCH_DEBOUNCE", c.Watch.Debounce.Duration)

	c.LogLevel = getEnv("RX_LOG_LEVEL", c.LogLevel)
}

func providerKeyEnv(provider string) string {
	switch provider {
	case "gemini":
		return "GEMINI_API_KEY"
	case "anthropic", "claude":
		return "ANTHROPIC_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

// Validate rejects configuration no component could run with
func (c *Config) Validate() error {
	v := NewValidator().
		Field("database.dsn", c.Database.DSN, Required).
		Field("queue.workers", c.Queue.Workers, Positive).
		Field("queue.size", c.Queue.Size, Positive).
		Field("ocr.timeout", c.OCR.Timeout.Duration, NonNegative).
		Field("ocr.local_timeout", c.OCR.LocalTimeout.Duration, NonNegative).
		Field("llm.timeout", c.LLM.Timeout.Duration, NonNegative).
		Field("llm.max_tokens", c.LLM.MaxTokens, NonNegative).
		Field("llm.provider", c.LLM.Provider, OneOf("openai", "gemini", "anthropic", "claude", "ollama"))
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

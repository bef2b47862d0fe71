package config

import (
	"fmt"
	"os"
	"strconv"
)

// Deployment modes. Production requires authentication and hides internal
// error detail from responses.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

type Config struct {
	Mode        string // development | production
	Port        string
	MaxUploadMB int64  // upload size ceiling
	APIKey      string // bearer credential, required in production
	ModelDir    string // directory containing the model files
	ModelID     string // model identifier reported on /health
	Device      string // auto | cuda | cpu
	AuditLog    string // path of the append-only audit log
	TempDir     string // where request audio artifacts are written; "" = system temp
	LogLevel    string
	LogFormat   string // json | console
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Mode:      getEnv("MODE", ModeDevelopment),
		Port:      getEnv("PORT", "5000"),
		APIKey:    os.Getenv("API_KEY"),
		ModelDir:  getEnv("MODEL_DIR", "models/whisper-base"),
		ModelID:   getEnv("MODEL_ID", "whisper-base"),
		Device:    getEnv("DEVICE", "auto"),
		AuditLog:  getEnv("AUDIT_LOG", "audit.log"),
		TempDir:   os.Getenv("TEMP_DIR"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	mb, err := strconv.ParseInt(getEnv("MAX_UPLOAD_MB", "25"), 10, 64)
	if err != nil || mb <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be a positive integer, got %q", os.Getenv("MAX_UPLOAD_MB"))
	}
	cfg.MaxUploadMB = mb

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDevelopment, ModeProduction:
	default:
		return fmt.Errorf("MODE must be %q or %q, got %q", ModeDevelopment, ModeProduction, c.Mode)
	}

	if c.Mode == ModeProduction && c.APIKey == "" {
		return fmt.Errorf("API_KEY is required in production mode")
	}

	switch c.Device {
	case "auto", "cuda", "cpu":
	default:
		return fmt.Errorf("DEVICE must be auto, cuda or cpu, got %q", c.Device)
	}

	return nil
}

// Production reports whether authentication and error redaction apply.
func (c *Config) Production() bool {
	return c.Mode == ModeProduction
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB * 1024 * 1024
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	ModeDemo   = "demo"
	ModeRemote = "remote"
)

// Config holds all service configuration
type Config struct {
	// Server
	ServerAddress string `validate:"required"`
	Environment   string `validate:"oneof=development production"`
	LogLevel      string `validate:"oneof=debug info warn error"`

	// Scratch storage for uploads and rendered charts
	ScratchDir  string `validate:"required"`
	MaxUploadMB int64  `validate:"gt=0"`

	// Analysis
	AnalysisMode    string        `validate:"oneof=demo remote"`
	AnalysisURL     string        `validate:"omitempty,url"`
	AnalysisTimeout time.Duration `validate:"gt=0"`
	MaxReportMB     int64         `validate:"gt=0"`

	// Features
	EnableMetrics bool
	EnableCORS    bool
	CORSOrigins   []string
}

var validate = validator.New()

// Load reads .env (if present) and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		godotenv.Load("../.env")
	}
	return FromEnv()
}

// FromEnv builds the config from the current environment only
func FromEnv() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":"+getEnv("PORT", "8080")),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),

		ScratchDir:  getEnv("SCRATCH_DIR", os.TempDir()),
		MaxUploadMB: int64(getEnvInt("MAX_UPLOAD_MB", 200)),

		AnalysisMode:    strings.ToLower(getEnv("ANALYSIS_MODE", ModeDemo)),
		AnalysisURL:     getEnv("ANALYSIS_URL", "http://localhost:8000/process_video/"),
		AnalysisTimeout: getEnvDuration("ANALYSIS_TIMEOUT", 10*time.Minute),
		MaxReportMB:     int64(getEnvInt("MAX_REPORT_MB", 50)),

		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableCORS:    getEnvBool("ENABLE_CORS", false),
		CORSOrigins:   getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.IsRemote() && c.AnalysisURL == "" {
		return fmt.Errorf("ANALYSIS_URL is required when ANALYSIS_MODE=remote")
	}
	return nil
}

// MaxUploadBytes is the request body cap for uploads
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// MaxReportBytes caps a report downloaded from the analysis service
func (c *Config) MaxReportBytes() int64 {
	return c.MaxReportMB << 20
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsRemote() bool {
	return c.AnalysisMode == ModeRemote
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	Providers ProvidersConfig
	Scorer    ScorerConfig
	Sandbox   SandboxConfig
	Normalize NormalizeConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// ProvidersConfig holds LLM provider configuration. The primary
// provider speaks an OpenAI-style chat API; the secondary is a local
// line-oriented endpoint used when the primary fails.
type ProvidersConfig struct {
	PrimaryURL     string        `envconfig:"LLM_PRIMARY_URL" default:""`
	PrimaryKey     string        `envconfig:"LLM_PRIMARY_KEY" default:""`
	PrimaryModel   string        `envconfig:"LLM_PRIMARY_MODEL" default:"gpt-4o-mini"`
	SecondaryURL   string        `envconfig:"LLM_SECONDARY_URL" default:"http://localhost:11434"`
	SecondaryModel string        `envconfig:"LLM_SECONDARY_MODEL" default:"llama3.1"`
	Timeout        time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	Temperature    float64       `envconfig:"LLM_TEMPERATURE" default:"0.1"`
	MaxTokens      int           `envconfig:"LLM_MAX_TOKENS" default:"2048"`
}

// ScorerConfig holds the confidence scoring weights. Weights are
// configuration, not constants, so deployments can tune them.
type ScorerConfig struct {
	Specificity  float64 `envconfig:"SCORE_WEIGHT_SPECIFICITY" default:"0.30"`
	Clarity      float64 `envconfig:"SCORE_WEIGHT_CLARITY" default:"0.25"`
	Consistency  float64 `envconfig:"SCORE_WEIGHT_CONSISTENCY" default:"0.20"`
	Completeness float64 `envconfig:"SCORE_WEIGHT_COMPLETENESS" default:"0.25"`
}

// SandboxConfig holds validation sandbox configuration.
type SandboxConfig struct {
	Timeout           time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"60s"`
	AllowedDomains    []string      `envconfig:"SANDBOX_ALLOWED_DOMAINS" default:""`
	CaptureScreenshot bool          `envconfig:"SANDBOX_SCREENSHOT" default:"false"`
	ChromePath        string        `envconfig:"SANDBOX_CHROME_PATH" default:""`
	MaxMemoryMB       int64         `envconfig:"SANDBOX_MAX_MEMORY_MB" default:"512"`
}

// NormalizeConfig holds normalization configuration.
type NormalizeConfig struct {
	// LexiconPath optionally points at a YAML file with per-locale
	// language lexicons replacing the built-in de/en set.
	LexiconPath string `envconfig:"NORMALIZE_LEXICON_PATH" default:""`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Providers: ProvidersConfig{
			PrimaryModel:   "gpt-4o-mini",
			SecondaryURL:   "http://localhost:11434",
			SecondaryModel: "llama3.1",
			Timeout:        60 * time.Second,
			Temperature:    0.1,
			MaxTokens:      2048,
		},
		Scorer: ScorerConfig{
			Specificity:  0.30,
			Clarity:      0.25,
			Consistency:  0.20,
			Completeness: 0.25,
		},
		Sandbox: SandboxConfig{
			Timeout:     60 * time.Second,
			MaxMemoryMB: 512,
		},
		Normalize: NormalizeConfig{},
	}
}

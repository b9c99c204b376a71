package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Provider config
	assert.Empty(t, cfg.Providers.PrimaryURL)
	assert.Equal(t, "http://localhost:11434", cfg.Providers.SecondaryURL)
	assert.Equal(t, "llama3.1", cfg.Providers.SecondaryModel)
	assert.Equal(t, 60*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, 2048, cfg.Providers.MaxTokens)

	// Scorer weights sum to one
	weights := cfg.Scorer
	assert.InDelta(t, 1.0, weights.Specificity+weights.Clarity+weights.Consistency+weights.Completeness, 1e-9)

	// Sandbox config
	assert.Equal(t, 60*time.Second, cfg.Sandbox.Timeout)
	assert.Empty(t, cfg.Sandbox.AllowedDomains)
	assert.Equal(t, int64(512), cfg.Sandbox.MaxMemoryMB)
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                    "9000",
		"HOST":                    "127.0.0.1",
		"LOG_LEVEL":               "debug",
		"LOG_DEV":                 "true",
		"LLM_PRIMARY_URL":         "https://api.example.com/v1",
		"LLM_PRIMARY_MODEL":       "gpt-4o",
		"LLM_TIMEOUT":             "30s",
		"LLM_MAX_TOKENS":          "4096",
		"SCORE_WEIGHT_CLARITY":    "0.4",
		"SANDBOX_TIMEOUT":         "90s",
		"SANDBOX_ALLOWED_DOMAINS": "a.example,b.example",
		"SANDBOX_SCREENSHOT":      "true",
	}

	for key, value := range envVars {
		err := os.Setenv(key, value)
		require.NoError(t, err)
		defer os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	assert.Equal(t, "https://api.example.com/v1", cfg.Providers.PrimaryURL)
	assert.Equal(t, "gpt-4o", cfg.Providers.PrimaryModel)
	assert.Equal(t, 30*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, 4096, cfg.Providers.MaxTokens)

	assert.Equal(t, 0.4, cfg.Scorer.Clarity)

	assert.Equal(t, 90*time.Second, cfg.Sandbox.Timeout)
	assert.Equal(t, []string{"a.example", "b.example"}, cfg.Sandbox.AllowedDomains)
	assert.True(t, cfg.Sandbox.CaptureScreenshot)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	err := os.Setenv("PORT", "3000")
	require.NoError(t, err)
	defer os.Unsetenv("PORT")

	err = os.Setenv("LOG_LEVEL", "warn")
	require.NoError(t, err)
	defer os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)

	// Verify overridden values
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Verify default values still apply
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "llama3.1", cfg.Providers.SecondaryModel)
	assert.Equal(t, 0.30, cfg.Scorer.Specificity)
}

func TestServerConfig(t *testing.T) {
	tests := []struct {
		name     string
		port     string
		host     string
		wantPort string
		wantHost string
	}{
		{
			name:     "default values",
			wantPort: "8080",
			wantHost: "0.0.0.0",
		},
		{
			name:     "custom port",
			port:     "9000",
			wantPort: "9000",
			wantHost: "0.0.0.0",
		},
		{
			name:     "custom host",
			host:     "localhost",
			wantPort: "8080",
			wantHost: "localhost",
		},
		{
			name:     "custom port and host",
			port:     "3000",
			host:     "127.0.0.1",
			wantPort: "3000",
			wantHost: "127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("PORT")
			os.Unsetenv("HOST")

			if tt.port != "" {
				err := os.Setenv("PORT", tt.port)
				require.NoError(t, err)
				defer os.Unsetenv("PORT")
			}
			if tt.host != "" {
				err := os.Setenv("HOST", tt.host)
				require.NoError(t, err)
				defer os.Unsetenv("HOST")
			}

			cfg := LoadOrDefault()

			assert.Equal(t, tt.wantPort, cfg.Server.Port)
			assert.Equal(t, tt.wantHost, cfg.Server.Host)
		})
	}
}

func TestScorerConfig(t *testing.T) {
	tests := []struct {
		name        string
		specificity string
		want        float64
	}{
		{
			name: "default weight",
			want: 0.30,
		},
		{
			name:        "custom weight",
			specificity: "0.5",
			want:        0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("SCORE_WEIGHT_SPECIFICITY")

			if tt.specificity != "" {
				err := os.Setenv("SCORE_WEIGHT_SPECIFICITY", tt.specificity)
				require.NoError(t, err)
				defer os.Unsetenv("SCORE_WEIGHT_SPECIFICITY")
			}

			cfg := LoadOrDefault()

			assert.Equal(t, tt.want, cfg.Scorer.Specificity)
		})
	}
}

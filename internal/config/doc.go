// Package config provides 12-factor configuration for the plan service.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - Providers: LLM endpoints, models and generation limits
//   - Scorer: Confidence scoring weights
//   - Sandbox: Validation timeout, domain allow-list and browser limits
//   - Normalize: Optional lexicon overrides
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - LLM_PRIMARY_URL, LLM_PRIMARY_KEY, LLM_PRIMARY_MODEL
//   - LLM_SECONDARY_URL, LLM_SECONDARY_MODEL, LLM_TIMEOUT
//   - SCORE_WEIGHT_SPECIFICITY, SCORE_WEIGHT_CLARITY,
//     SCORE_WEIGHT_CONSISTENCY, SCORE_WEIGHT_COMPLETENESS
//   - SANDBOX_TIMEOUT, SANDBOX_ALLOWED_DOMAINS, SANDBOX_SCREENSHOT
package config

// Package llm defines the provider contract consumed by selector
// synthesis. The synthesizer depends only on this shape, never on a
// specific vendor API.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Format selects the response discipline requested from a provider.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Request is one generation call.
type Request struct {
	Prompt           string  `json:"prompt"`
	SystemMessage    string  `json:"systemMessage,omitempty"`
	Format           string  `json:"format,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
	MaxTokens        int     `json:"maxTokens,omitempty"`
	ProviderOverride string  `json:"providerOverride,omitempty"`
}

// Response is the provider's answer plus accounting metadata.
type Response struct {
	Content    string `json:"content"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokensUsed"`
}

// Provider generates completions. Calls are synchronous and bounded by
// the context deadline; cancellation means give up and fall back, not
// cooperative mid-call interruption.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
}

// ErrTokenLimit marks provider rejections caused by oversized prompts.
// The fallback chain treats it like any other provider failure.
var ErrTokenLimit = errors.New("prompt exceeds provider token limit")

// tokenLimitMarkers are vendor phrasings that identify token-limit
// rejections inside opaque error strings.
var tokenLimitMarkers = []string{
	"too many tokens", "maximum context length", "context_length_exceeded",
	"token limit", "prompt is too long",
}

// IsTokenLimit reports whether err represents a token-limit rejection.
func IsTokenLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenLimit) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range tokenLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

// LocalProviderConfig configures an Ollama-style local endpoint used
// as the offline secondary in the fallback chain.
type LocalProviderConfig struct {
	Name    string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LocalProvider talks to a local inference server. Responses come back
// as plain text; the synthesizer parses them with the loose
// line-oriented format rather than strict JSON.
type LocalProvider struct {
	cfg    LocalProviderConfig
	client *resty.Client
}

// NewLocalProvider creates the provider.
func NewLocalProvider(cfg LocalProviderConfig) *LocalProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	return &LocalProvider{
		cfg:    cfg,
		client: resty.New().SetTimeout(cfg.Timeout).SetBaseURL(cfg.BaseURL),
	}
}

// Name implements Provider.
func (p *LocalProvider) Name() string { return p.cfg.Name }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
	Options struct {
		Temperature float64 `json:"temperature,omitempty"`
		NumPredict  int     `json:"num_predict,omitempty"`
	} `json:"options"`
}

type generateResponse struct {
	Model     string `json:"model"`
	Response  string `json:"response"`
	EvalCount int    `json:"eval_count"`
	Error     string `json:"error"`
}

// Generate implements Provider.
func (p *LocalProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	body := generateRequest{
		Model:  p.cfg.Model,
		Prompt: req.Prompt,
		System: req.SystemMessage,
		Stream: false,
	}
	body.Options.Temperature = req.Temperature
	body.Options.NumPredict = req.MaxTokens

	payload, err := sonic.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/api/generate")
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", p.cfg.Name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("provider %s: status %d: %s", p.cfg.Name, resp.StatusCode(), resp.String())
	}

	var parsed generateResponse
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("provider %s: decode response: %w", p.cfg.Name, err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("provider %s: %s", p.cfg.Name, parsed.Error)
	}

	return &Response{
		Content:    parsed.Response,
		Provider:   p.cfg.Name,
		Model:      parsed.Model,
		TokensUsed: parsed.EvalCount,
	}, nil
}

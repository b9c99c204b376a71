package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

// HTTPProviderConfig configures a chat-completions style provider.
type HTTPProviderConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// HTTPProvider talks to an OpenAI-compatible chat-completions endpoint.
// It is the reference primary provider; any vendor exposing the same
// wire shape works unchanged.
type HTTPProvider struct {
	cfg    HTTPProviderConfig
	client *resty.Client
}

// NewHTTPProvider creates the provider with its own resty client so a
// slow LLM endpoint never competes with page fetching.
func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetBaseURL(cfg.BaseURL)
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &HTTPProvider{cfg: cfg, client: client}
}

// Name implements Provider.
func (p *HTTPProvider) Name() string { return p.cfg.Name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature,omitempty"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Generate implements Provider.
func (p *HTTPProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	model := p.cfg.Model
	if req.ProviderOverride != "" {
		model = req.ProviderOverride
	}

	body := chatRequest{
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.SystemMessage != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.SystemMessage})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.Format == FormatJSON {
		body.ResponseFormat = map[string]any{"type": "json_object"}
	}

	payload, err := sonic.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/v1/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", p.cfg.Name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("provider %s: status %d: %s", p.cfg.Name, resp.StatusCode(), resp.String())
	}

	var parsed chatResponse
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("provider %s: decode response: %w", p.cfg.Name, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("provider %s: %s", p.cfg.Name, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("provider %s: empty choices", p.cfg.Name)
	}

	return &Response{
		Content:    parsed.Choices[0].Message.Content,
		Provider:   p.cfg.Name,
		Model:      parsed.Model,
		TokensUsed: parsed.Usage.TotalTokens,
	}, nil
}

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fbettag/sgpt/internal/config"
	"github.com/fbettag/sgpt/internal/modelcatalog"
	"github.com/fbettag/sgpt/internal/provider"
)

// ErrNoChoices is returned when a successful response carries no completion.
var ErrNoChoices = errors.New("completion response contained no choices")

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	url          string
	token        string
	systemPrompt string
	httpClient   *http.Client
	logger       *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithURL points the client at another endpoint (proxies, tests).
func WithURL(url string) Option {
	return func(c *Client) {
		if strings.TrimSpace(url) != "" {
			c.url = strings.TrimSpace(url)
		}
	}
}

// WithTimeout bounds the whole exchange.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithSystemPrompt replaces the system message.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) {
		if strings.TrimSpace(prompt) != "" {
			c.systemPrompt = prompt
		}
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client authenticated with token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		url:          config.DefaultAPIURL,
		token:        token,
		systemPrompt: config.DefaultSystemPrompt,
		httpClient:   &http.Client{Timeout: config.DefaultTimeoutSeconds * time.Second},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig builds a client from the loaded configuration.
func FromConfig(cfg config.Config, token string, opts ...Option) *Client {
	base := []Option{
		WithURL(cfg.API.URL),
		WithTimeout(cfg.Timeout()),
		WithSystemPrompt(cfg.API.SystemPrompt),
	}
	return New(token, append(base, opts...)...)
}

// Complete sends the prompt and returns the first choice's message content.
func (c *Client) Complete(ctx context.Context, req provider.Request) (string, error) {
	if strings.TrimSpace(c.token) == "" {
		return "", errors.New("openai: API key missing")
	}
	if req.Model != "" && req.Model != modelcatalog.Upstream {
		c.logger.Debug("model selection is not forwarded", "selected", string(req.Model), "sent", string(modelcatalog.Upstream))
	}
	payload := chatRequest{
		Model: string(modelcatalog.Upstream),
		Messages: []provider.ChatMessage{
			{Role: provider.RoleSystem, Content: c.systemPrompt},
			{Role: provider.RoleUser, Content: req.Prompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &provider.NetworkError{Err: err}
	}
	defer resp.Body.Close()
	c.logger.Debug("completion response", "status", resp.StatusCode, "elapsed", time.Since(started).Round(time.Millisecond))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &provider.NetworkError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &provider.UpstreamError{Status: resp.StatusCode, Body: string(data)}
	}
	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decoding completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrNoChoices
	}
	return out.Choices[0].Message.Content, nil
}

type chatRequest struct {
	Model    string                 `json:"model"`
	Messages []provider.ChatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message provider.ChatMessage `json:"message"`
	} `json:"choices"`
}

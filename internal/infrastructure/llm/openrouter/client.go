// Package openrouter enriches parts through the OpenRouter chat-completions API.
package openrouter

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/infrastructure/llm/enrichment"
	"github.com/dakshin/partsquote/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "google/gemini-flash-1.5-8b"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	Referer    string
	Title      string
	Resilience *resilience.Executor
}

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	referer    string
	title      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(options Options) *Client {
	baseURL := strings.TrimRight(options.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := options.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     options.APIKey,
		model:      model,
		referer:    options.Referer,
		title:      options.Title,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Resilience,
	}
}

func (c *Client) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Enrich returns an error only when the provider could not be reached or answered non-2xx.
func (c *Client) Enrich(ctx context.Context, req domain.EnrichmentRequest) (domain.PartEnrichment, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: enrichment.SystemPrompt},
			{Role: "user", Content: enrichment.BuildPrompt(req)},
		},
		Temperature: 0.2,
		MaxTokens:   2000,
	}

	response, err := resilience.ExecuteValue(ctx, c.executor, "openrouter.chat", func(callCtx context.Context) (chatResponse, error) {
		var out chatResponse
		err := c.postJSON(callCtx, "/chat/completions", body, &out, "chat")
		return out, err
	}, classifyOpenRouterError)
	if err != nil {
		return domain.PartEnrichment{}, wrapTemporaryIfNeeded("openrouter chat", err)
	}

	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Message.Content) == "" {
		slog.Warn("enrichment_fallback", "provider", "openrouter", "part_number", req.PartNumber, "reason", "empty choices")
		return domain.FallbackEnrichment(req), nil
	}

	result, reason := enrichment.Decode(response.Choices[0].Message.Content, req)
	if reason != nil {
		slog.Warn("enrichment_fallback", "provider", "openrouter", "part_number", req.PartNumber, "reason", reason.Error())
	}
	return result, nil
}

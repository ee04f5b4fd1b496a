// Package anthropic enriches parts through the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/infrastructure/llm/enrichment"
	"github.com/dakshin/partsquote/internal/infrastructure/resilience"
)

const DefaultModel = "claude-3-5-haiku-latest"

type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	Resilience *resilience.Executor
}

type Client struct {
	api      sdk.Client
	model    string
	executor *resilience.Executor
}

func New(options Options) *Client {
	model := options.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(options.APIKey),
		option.WithRequestTimeout(timeout),
		// Retries are owned by the resilience executor.
		option.WithMaxRetries(0),
	}
	if options.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(options.BaseURL))
	}
	return &Client{
		api:      sdk.NewClient(opts...),
		model:    model,
		executor: options.Resilience,
	}
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Enrich(ctx context.Context, req domain.EnrichmentRequest) (domain.PartEnrichment, error) {
	text, err := resilience.ExecuteValue(ctx, c.executor, "anthropic.messages", func(callCtx context.Context) (string, error) {
		return c.complete(callCtx, req)
	}, classifyAnthropicError)
	if err != nil {
		return domain.PartEnrichment{}, wrapTemporaryIfNeeded("anthropic messages", err)
	}
	if text == "" {
		slog.Warn("enrichment_fallback", "provider", "anthropic", "part_number", req.PartNumber, "reason", "no text content")
		return domain.FallbackEnrichment(req), nil
	}

	result, reason := enrichment.Decode(text, req)
	if reason != nil {
		slog.Warn("enrichment_fallback", "provider", "anthropic", "part_number", req.PartNumber, "reason", reason.Error())
	}
	return result, nil
}

func (c *Client) complete(ctx context.Context, req domain.EnrichmentRequest) (string, error) {
	message, err := c.api.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   2000,
		Temperature: sdk.Float(0.2),
		System: []sdk.TextBlockParam{
			{Text: enrichment.SystemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(enrichment.BuildPrompt(req))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages request: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			slog.Debug("anthropic_response", "part_number", req.PartNumber, "tokens_in", message.Usage.InputTokens, "tokens_out", message.Usage.OutputTokens)
			return block.Text, nil
		}
	}
	return "", nil
}

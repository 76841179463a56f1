package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/memoir-labs/memoir/internal/domain"
	"github.com/memoir-labs/memoir/internal/metrics"
)

// ChatClient issues chat completions against the OpenAI-compatible API.
// The classification engine talks to the model exclusively through it.
type ChatClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	usage   UsageRecorder
	logger  *zap.Logger
}

// ChatConfig holds the completion provider settings.
type ChatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Usage   UsageRecorder // nilable
	Logger  *zap.Logger
}

// NewChatClient creates an OpenAI-compatible chat completion client.
func NewChatClient(cfg *ChatConfig) *ChatClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &ChatClient{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		usage:   cfg.Usage,
		logger:  cfg.Logger,
	}
}

// Complete sends a system+user prompt pair and returns the raw model text.
func (c *ChatClient) Complete(
	ctx context.Context, system, user string, temperature float32, maxTokens int,
) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", parseAPIError(err, domain.ErrLLMProviderError)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.CompletionRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrLLMProviderError)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		recordUsage(ctx, c.usage, int64(resp.Usage.TotalTokens), c.logger)
	}

	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies provider availability.
func (c *ChatClient) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("list models timed out: %w", err)
		}
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Package llm adapts the remote completion service to ports.Completer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/llmgate/chat-gateway/internal/core/domain"
	"github.com/llmgate/chat-gateway/internal/core/ports"
	"github.com/llmgate/chat-gateway/internal/pkg/metrics"
)

const (
	DefaultBaseURL    = "https://api.anthropic.com"
	DefaultModel      = "claude-3-sonnet-20240229"
	DefaultMaxTokens  = 1000
	DefaultAPIVersion = "2023-06-01"
	DefaultTimeout    = 60 * time.Second
)

var _ ports.Completer = (*AnthropicClient)(nil)

var errEmptyCompletion = errors.New("response contained no text")

// Config captures the fixed generation settings of the adapter.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	APIVersion string
	Timeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// AnthropicClient sends single-turn prompts to the Messages API.
// It never retries: every failure is terminal for the calling request.
type AnthropicClient struct {
	client anthropic.Client
	cfg    Config
	log    zerolog.Logger
}

// NewAnthropicClient builds a client from cfg, filling unset fields with defaults.
func NewAnthropicClient(cfg Config, log zerolog.Logger) *AnthropicClient {
	cfg = cfg.withDefaults()
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHeader("anthropic-version", cfg.APIVersion),
		option.WithMaxRetries(0),
	)
	return &AnthropicClient{
		client: client,
		cfg:    cfg,
		log:    log.With().Str("component", "llm").Str("model", cfg.Model).Logger(),
	}
}

// Complete returns the text of the first text block in the reply. Transport
// errors, non-2xx responses, timeouts and empty replies all wrap domain.ErrRemote.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := c.complete(ctx, prompt)
	elapsed := time.Since(start)

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.CompletionsTotal.WithLabelValues(result).Inc()
	metrics.CompletionDuration.WithLabelValues(result).Observe(elapsed.Seconds())

	if err != nil {
		c.log.Error().Err(err).Dur("elapsed", elapsed).Msg("completion failed")
		return "", fmt.Errorf("%w: %w", domain.ErrRemote, err)
	}
	c.log.Debug().Dur("elapsed", elapsed).Int("chars", len(text)).Msg("completion received")
	return text, nil
}

func (c *AnthropicClient) complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(c.cfg.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", errEmptyCompletion
}

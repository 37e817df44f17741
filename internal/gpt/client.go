// Package gpt generates recipes with an OpenAI-compatible chat-completions
// service.
package gpt

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/Sanny1998/Virtual-chef/internal/logger"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// OpenAIClient is the subset of *openai.Client the package uses. Tests
// supply a fake.
type OpenAIClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ErrEmptyResponse is returned when the service answers without content.
var ErrEmptyResponse = errors.New("gpt: empty response")

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithModel overrides the default model name.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float32) ClientOption {
	return func(c *Client) { c.temperature = t }
}

// WithMaxTokens sets the response token limit.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) { c.maxTokens = n }
}

// WithRateLimit caps requests per second with the given burst. A
// non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// Client sends chat completions, paced by a token-bucket limiter.
type Client struct {
	api         OpenAIClient
	model       string
	temperature float32
	maxTokens   int
	limiter     *rate.Limiter
	log         *logger.Logger
}

// NewOpenAI builds a go-openai client for apiKey. baseURL may point at any
// OpenAI-compatible endpoint; empty keeps the default.
func NewOpenAI(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// NewClient wraps api. By default requests are limited to one per second
// with a burst of two.
func NewClient(api OpenAIClient, log *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		api:         api,
		model:       DefaultModel,
		temperature: 0.7,
		maxTokens:   1200,
		limiter:     rate.NewLimiter(rate.Limit(1), 2),
		log:         log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ChatJSON sends a system and user message, asks for a JSON object reply,
// and returns the assistant's content.
func (c *Client) ChatJSON(ctx context.Context, system, user string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("gpt: waiting for rate limiter: %w", err)
		}
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	c.log.Debug("gpt: chat completion model=%s (%d chars)", c.model, len(system)+len(user))

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("gpt: request failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	reply := resp.Choices[0].Message.Content
	c.log.Debug("gpt: reply (%d chars): %s", len(reply), truncate(reply, 120))
	return reply, nil
}

// truncate shortens s to at most n runes for log lines.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// Package ai abstracts the AI-analysis capability. The pipeline treats
// it as analyze(prompt) -> text and never assumes it is available.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Analyzer is the injected AI capability.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (string, error)
	Name() string
}

const systemPrompt = "You are an expert code reviewer. Respond with JSON only, no prose, no markdown fences."

// Options configures the OpenAI-compatible client. BaseURL supports
// self-hosted gateways; TimeoutSeconds bounds each call so a hung
// request surfaces as a batch failure instead of stalling its window.
type Options struct {
	APIKey         string
	Model          string
	BaseURL        string
	MaxTokens      int
	Temperature    float32
	TimeoutSeconds int
	MaxRetries     int
}

// Client talks to an OpenAI-compatible chat-completion endpoint.
type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	maxRetries  int
	log         *slog.Logger
}

// NewClient builds a Client from options.
func NewClient(opts Options, log *slog.Logger) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("ai: missing API key")
	}
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	if opts.TimeoutSeconds <= 0 {
		opts.TimeoutSeconds = 120
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &Client{
		api:         openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		timeout:     time.Duration(opts.TimeoutSeconds) * time.Second,
		maxRetries:  opts.MaxRetries,
		log:         log,
	}, nil
}

// Name identifies the capability in diagnostics.
func (c *Client) Name() string {
	return "openai:" + c.model
}

// Analyze sends one prompt and returns the raw model output.
func (c *Client) Analyze(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var content string
	err := retryWithBackoff(ctx, c.maxRetries, func() error {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty completion response")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ai analyze: %w", err)
	}
	return content, nil
}

// Package llm is the language-model boundary. The extraction engine treats
// the model as an optional collaborator: every caller must degrade
// gracefully when no client is configured.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// ErrTimeout is returned when a completion call exceeds its deadline.
var ErrTimeout = errors.New("language model call timed out")

// Client issues completion calls. Implementations must honor context
// cancellation: an abandoned extraction attempt must not leave a model call
// running.
type Client interface {
	// Complete sends a prompt and returns the model's text.
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Config for the HTTP client
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// HTTP talks to an OpenAI-compatible completions endpoint.
type HTTP struct {
	client *resty.Client
	model  string
}

// NewHTTP creates an HTTP client, or nil when no endpoint is configured so
// callers can treat "no model" uniformly.
func NewHTTP(cfg Config) *HTTP {
	if cfg.Endpoint == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &HTTP{client: client, model: cfg.Model}
}

type completionRequest struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a prompt to the chat completions endpoint.
func (h *HTTP) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	start := time.Now()

	var result completionResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(completionRequest{
			Model:     h.model,
			Messages:  []message{{Role: "user", Content: prompt}},
			MaxTokens: maxTokens,
		}).
		SetResult(&result).
		Post("/v1/chat/completions")

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("completion request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("completion request returned status %d", resp.StatusCode())
	}
	if result.Error != nil {
		return "", fmt.Errorf("completion error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	log.Debug().
		Dur("elapsed_ms", time.Since(start)).
		Int("max_tokens", maxTokens).
		Msg("Completion call finished")

	return result.Choices[0].Message.Content, nil
}

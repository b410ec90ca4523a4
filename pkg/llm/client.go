// Package llm wraps the chat-completion providers used for question generation and answer scoring.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// Request is a single JSON-mode completion.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
}

// Client is an abstraction over LLM providers.
type Client interface {
	// GenerateJSON returns the raw JSON document produced for req.
	GenerateJSON(ctx context.Context, req Request) (string, error)
	Model() string
	Close() error
}

type Config struct {
	Provider     Provider
	OpenAIAPIKey string
	OpenAIModel  string
	OpenAIBase   string
	GeminiAPIKey string
	GeminiModel  string
}

// NewClient creates a client for the configured provider.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	switch Provider(strings.ToLower(string(cfg.Provider))) {
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBase)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// cleanJSONBlock removes markdown code block wrappers from JSON
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ErrUnavailable is returned by the client used when no provider is configured.
var ErrUnavailable = errors.New("llm: no provider configured")

type unavailableClient struct {
	cause error
}

// Unavailable returns a Client whose calls fail with ErrUnavailable. The server
// keeps running without AI features.
func Unavailable(cause error) Client {
	return unavailableClient{cause: cause}
}

func (c unavailableClient) GenerateJSON(context.Context, Request) (string, error) {
	return "", fmt.Errorf("%w: %v", ErrUnavailable, c.cause)
}

func (unavailableClient) Model() string { return "none" }

func (unavailableClient) Close() error { return nil }

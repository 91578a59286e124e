// Package llm is the boundary to hosted language models. Every external AI
// call in the module goes through a Provider.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Request is one chat completion: a system instruction, one user message
// and the sampling settings.
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Provider sends a Request to a model and returns the reply text.
// Failures are *ServiceError values.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (string, error)

func (f ProviderFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config selects and configures a provider.
type Config struct {
	Provider string        `koanf:"provider"`
	Model    string        `koanf:"model"`
	APIKey   string        `koanf:"api_key"`
	BaseURL  string        `koanf:"base_url"` // OpenAI-compatible endpoint override
	Timeout  time.Duration `koanf:"timeout"`
}

// DefaultConfig mirrors the defaults of the config package.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderOpenAI,
		Model:    "gpt-3.5-turbo",
		Timeout:  60 * time.Second,
	}
}

// New builds the provider named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		return NewOpenAI(cfg)
	case ProviderGemini:
		return NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q (want %q or %q)", cfg.Provider, ProviderOpenAI, ProviderGemini)
	}
}

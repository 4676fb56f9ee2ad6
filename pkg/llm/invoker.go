// Package llm provides the model invocation layer used by the dialogue
// pipeline: one Invoker interface over a direct OpenAI backend, a
// rate-limited OpenRouter gateway backend and a local Ollama backend.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/alantheprice/dialoguegen/pkg/utils"
)

// Invoker sends a prompt to a language model and returns its text.
// Failures are always *CallError values.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, tools ...Tool) (string, error)
	Provider() string
	Model() string
}

// ClientType names a backend
type ClientType string

const (
	OpenAIClientType     ClientType = "openai"
	OpenRouterClientType ClientType = "openrouter"
	OllamaClientType     ClientType = "ollama"
)

const (
	DefaultOpenAIURL     = "https://api.openai.com/v1/chat/completions"
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	DefaultTimeout       = 30 * time.Second
)

// Config carries everything a backend needs. It is built by the
// configuration package and passed explicitly; there is no global state.
type Config struct {
	Type    ClientType
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// MaxAttempts bounds gateway retries on 429 (default 3)
	MaxAttempts int
	// MaxWait caps a single backoff wait (default 60s)
	MaxWait time.Duration
	// Sleeper overrides how backoff waits are performed; tests use it
	Sleeper Sleeper
	Logger  *utils.Logger
}

// NewInvoker creates the backend selected by cfg.Type
func NewInvoker(cfg Config) (Invoker, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch cfg.Type {
	case OpenAIClientType, "":
		return NewOpenAIClient(cfg)
	case OpenRouterClientType:
		return NewOpenRouterClient(cfg)
	case OllamaClientType:
		return NewOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Type)
	}
}

// SupportedProviders lists the backends NewInvoker understands
func SupportedProviders() []ClientType {
	return []ClientType{OpenAIClientType, OpenRouterClientType, OllamaClientType}
}

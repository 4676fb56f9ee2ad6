package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"
)

// chatter is the subset of the ollama client we call
type chatter interface {
	Chat(ctx context.Context, req *ollama.ChatRequest, fn ollama.ChatResponseFunc) error
}

// OllamaClient is a direct backend talking to a local Ollama server.
// Like the OpenAI backend it never retries.
type OllamaClient struct {
	client chatter
	model  string
}

// NewOllamaClient connects to cfg.BaseURL, or OLLAMA_HOST when empty
func NewOllamaClient(cfg Config) (*OllamaClient, error) {
	model := cfg.Model
	if model == "" {
		model = "qwen3:8b"
	}

	var client *ollama.Client
	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama base URL %q: %w", cfg.BaseURL, err)
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = ollama.NewClient(base, &http.Client{Timeout: timeout})
	} else {
		var err error
		client, err = ollama.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("could not create ollama client: %w", err)
		}
	}

	return &OllamaClient{client: client, model: model}, nil
}

func (c *OllamaClient) Provider() string { return string(OllamaClientType) }

func (c *OllamaClient) Model() string { return c.model }

// Invoke runs a non-streaming chat with prompt as the only user message.
// Tools are not forwarded; local models here are prompt-only.
func (c *OllamaClient) Invoke(ctx context.Context, prompt string, tools ...Tool) (string, error) {
	stream := false
	req := &ollama.ChatRequest{
		Model:    c.model,
		Messages: []ollama.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
	}

	var content strings.Builder
	err := c.client.Chat(ctx, req, func(res ollama.ChatResponse) error {
		content.WriteString(res.Message.Content)
		return nil
	})
	if err != nil {
		var statusErr ollama.StatusError
		if errors.As(err, &statusErr) {
			kind := KindAPIError
			if statusErr.StatusCode == http.StatusTooManyRequests {
				kind = KindRateLimit
			}
			return "", &CallError{
				Kind:       kind,
				Provider:   c.Provider(),
				StatusCode: statusErr.StatusCode,
				Message:    statusErr.ErrorMessage,
				Err:        err,
			}
		}
		return "", classifyTransportError(c.Provider(), err)
	}
	return content.String(), nil
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alantheprice/dialoguegen/pkg/utils"
)

// OpenRouterClient is the gateway backend. HTTP 429 responses are retried
// with capped exponential backoff; every other failure is returned at once.
type OpenRouterClient struct {
	httpClient  *http.Client
	url         string
	apiToken    string
	model       string
	maxAttempts int
	maxWait     time.Duration
	sleeper     Sleeper
	logger      *utils.Logger
	now         func() time.Time
	jitter      func() time.Duration
}

// NewOpenRouterClient creates a gateway backend
func NewOpenRouterClient(cfg Config) (*OpenRouterClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY not configured")
	}
	url := cfg.BaseURL
	if url == "" {
		url = DefaultOpenRouterURL
	}
	model := cfg.Model
	if model == "" {
		model = "openai/o3-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	sleeper := cfg.Sleeper
	if sleeper == nil {
		sleeper = DefaultSleeper
	}
	return &OpenRouterClient{
		httpClient:  &http.Client{Timeout: timeout},
		url:         url,
		apiToken:    cfg.APIKey,
		model:       model,
		maxAttempts: cfg.MaxAttempts,
		maxWait:     cfg.MaxWait,
		sleeper:     sleeper,
		logger:      cfg.Logger,
		now:         time.Now,
	}, nil
}

func (c *OpenRouterClient) Provider() string { return string(OpenRouterClientType) }

func (c *OpenRouterClient) Model() string { return c.model }

// Invoke sends prompt, retrying rate-limited attempts
func (c *OpenRouterClient) Invoke(ctx context.Context, prompt string, tools ...Tool) (string, error) {
	backoff := NewBackoff(c.maxAttempts, c.maxWait)
	if c.jitter != nil {
		backoff.Jitter = c.jitter
	}

	for {
		text, err := c.invokeOnce(ctx, prompt, tools)
		if err == nil {
			backoff.Succeed()
			return text, nil
		}

		var ce *CallError
		if !errors.As(err, &ce) || ce.Kind != KindRateLimit {
			return "", err
		}

		wait, ok := backoff.RateLimited(ce.ResetHint)
		if !ok {
			c.logger.Warnf("OpenRouter rate limit persisted after %d attempts", backoff.Attempt())
			return "", &CallError{
				Kind:       KindRateLimit,
				Provider:   c.Provider(),
				StatusCode: http.StatusTooManyRequests,
				Message:    fmt.Sprintf("%s after %d attempts: %s", ErrExhaustedRetries, backoff.Attempt(), ce.Message),
				ResetHint:  ce.ResetHint,
				Err:        ErrExhaustedRetries,
			}
		}

		c.logger.Warnf("OpenRouter rate limit hit (attempt %d/%d), waiting %v before retry",
			backoff.Attempt(), backoff.MaxAttempts, wait.Round(time.Millisecond))
		if err := c.sleeper.Sleep(ctx, wait); err != nil {
			return "", classifyTransportError(c.Provider(), err)
		}
		backoff.Resume()
	}
}

func (c *OpenRouterClient) invokeOnce(ctx context.Context, prompt string, tools []Tool) (string, error) {
	req := ChatRequest{
		Model:    c.model,
		Messages: userPrompt(prompt),
		Tools:    tools,
	}
	if len(tools) > 0 {
		req.ToolChoice = "auto"
	}

	headers := map[string]string{
		"HTTP-Referer": "https://github.com/alantheprice/dialoguegen",
		"X-Title":      "dialoguegen",
	}
	status, header, body, err := postChat(ctx, c.httpClient, c.url, c.apiToken, headers, req)
	if err != nil {
		return "", classifyTransportError(c.Provider(), err)
	}

	switch {
	case status == http.StatusOK:
		return decodeChatContent(c.Provider(), body)
	case status == http.StatusTooManyRequests:
		message, hint := parseRateLimitBody(body, c.now())
		if hint == 0 {
			hint = resetHintFromHeaders(header, c.now())
		}
		return "", &CallError{
			Kind:       KindRateLimit,
			Provider:   c.Provider(),
			StatusCode: status,
			Message:    message,
			ResetHint:  hint,
		}
	default:
		return "", &CallError{
			Kind:       KindAPIError,
			Provider:   c.Provider(),
			StatusCode: status,
			Message:    strings.TrimSpace(string(body)),
		}
	}
}

// parseRateLimitBody reads OpenRouter's 429 payload:
//
//	{"error":{"message":"...","metadata":{"headers":{"X-RateLimit-Reset":"<ms epoch>"}}}}
func parseRateLimitBody(body []byte, now time.Time) (string, time.Duration) {
	message := "rate limit exceeded"
	var payload struct {
		Error struct {
			Message  string `json:"message"`
			Metadata struct {
				Headers map[string]interface{} `json:"headers"`
			} `json:"metadata"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return message, 0
	}
	if payload.Error.Message != "" {
		message = payload.Error.Message
	}

	raw, ok := payload.Error.Metadata.Headers["X-RateLimit-Reset"]
	if !ok {
		return message, 0
	}
	var resetMs int64
	switch v := raw.(type) {
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return message, 0
		}
		resetMs = parsed
	case float64:
		resetMs = int64(v)
	default:
		return message, 0
	}
	return message, untilMillis(resetMs, now)
}

// resetHintFromHeaders checks X-RateLimit-Reset (ms epoch) then Retry-After (seconds)
func resetHintFromHeaders(h http.Header, now time.Time) time.Duration {
	if h == nil {
		return 0
	}
	if reset := h.Get("X-RateLimit-Reset"); reset != "" {
		if ms, err := strconv.ParseInt(reset, 10, 64); err == nil {
			if d := untilMillis(ms, now); d > 0 {
				return d
			}
		}
	}
	if retryAfter := h.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}

func untilMillis(ms int64, now time.Time) time.Duration {
	d := time.UnixMilli(ms).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

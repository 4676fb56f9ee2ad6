package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OpenAIClient is the direct backend: one synchronous call, failures are
// returned immediately without retry.
type OpenAIClient struct {
	httpClient *http.Client
	url        string
	apiKey     string
	model      string
}

// NewOpenAIClient creates a direct OpenAI chat-completions backend
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not configured")
	}
	url := cfg.BaseURL
	if url == "" {
		url = DefaultOpenAIURL
	}
	model := cfg.Model
	if model == "" {
		model = "o3-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		apiKey:     cfg.APIKey,
		model:      model,
	}, nil
}

func (c *OpenAIClient) Provider() string { return string(OpenAIClientType) }

func (c *OpenAIClient) Model() string { return c.model }

// Invoke sends prompt as a single user message
func (c *OpenAIClient) Invoke(ctx context.Context, prompt string, tools ...Tool) (string, error) {
	status, _, body, err := postChat(ctx, c.httpClient, c.url, c.apiKey, nil, ChatRequest{
		Model:    c.model,
		Messages: userPrompt(prompt),
		Tools:    tools,
	})
	if err != nil {
		return "", classifyTransportError(c.Provider(), err)
	}
	if status != http.StatusOK {
		kind := KindAPIError
		if status == http.StatusTooManyRequests {
			kind = KindRateLimit
		}
		return "", &CallError{
			Kind:       kind,
			Provider:   c.Provider(),
			StatusCode: status,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	return decodeChatContent(c.Provider(), body)
}

// postChat marshals req, posts it and returns the status, headers and raw body
func postChat(ctx context.Context, client *http.Client, url, apiKey string, headers map[string]string, req ChatRequest) (int, http.Header, []byte, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, resp.Header, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, resp.Header, respBody, nil
}

// decodeChatContent extracts the first choice's content from a 200 body
func decodeChatContent(provider string, body []byte) (string, error) {
	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", &CallError{
			Kind:     KindParseError,
			Provider: provider,
			Message:  fmt.Sprintf("failed to unmarshal response: %v", err),
			Err:      err,
		}
	}
	if len(chatResp.Choices) == 0 {
		return "", &CallError{
			Kind:     KindParseError,
			Provider: provider,
			Message:  "response contained no choices",
		}
	}
	return chatResp.Choices[0].Message.Content, nil
}

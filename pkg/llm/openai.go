package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jowpereira/bradax/pkg/reasoncode"
)

// OpenAIAdapter is the reference Provider Adapter: an OpenAI-compatible
// chat-completions client. It is the only type in this package that
// performs network I/O.
type OpenAIAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIAdapter builds an adapter using apiKey. timeout bounds every
// individual call; the Orchestrator additionally derives ctx's deadline
// from the configured per-request timeout (§5), whichever is shorter
// wins.
func NewOpenAIAdapter(apiKey string, timeout time.Duration) *OpenAIAdapter {
	return &OpenAIAdapter{
		apiKey:     apiKey,
		baseURL:    "https://api.openai.com/v1/chat/completions",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewOpenAIAdapterWithBaseURL builds an adapter against a non-default
// endpoint, for tests and OpenAI-compatible third-party providers.
func NewOpenAIAdapterWithBaseURL(apiKey, baseURL string, timeout time.Duration) *OpenAIAdapter {
	a := NewOpenAIAdapter(apiKey, timeout)
	a.baseURL = baseURL
	return a
}

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Invoke sends messages to the named model and returns the generated
// text plus token accounting. Network failures, context deadline
// exceeded, and remote 4xx/5xx all return a *reasoncode.Error classified
// as provider_error or provider_timeout; the Orchestrator never needs to
// inspect a raw error type.
func (a *OpenAIAdapter) Invoke(ctx context.Context, modelID string, messages []Message, params Parameters) (Result, error) {
	reqBody := openAIRequest{
		Model:       modelID,
		Messages:    messages,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, reasoncode.ProviderError(fmt.Errorf("openai: marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return Result{}, reasoncode.ProviderError(fmt.Errorf("openai: create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, reasoncode.ProviderTimeout()
		}
		return Result{}, reasoncode.ProviderError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{}, reasoncode.ProviderError(fmt.Errorf("openai: remote status %d", resp.StatusCode))
	}

	var oaiResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaiResp); err != nil {
		return Result{}, reasoncode.ProviderError(fmt.Errorf("openai: decode response: %w", err))
	}
	if len(oaiResp.Choices) == 0 {
		return Result{}, reasoncode.ProviderError(fmt.Errorf("openai: empty choices in response"))
	}

	usage := Usage{
		PromptTokens:     oaiResp.Usage.PromptTokens,
		CompletionTokens: oaiResp.Usage.CompletionTokens,
		TotalTokens:      oaiResp.Usage.TotalTokens,
	}

	return Result{
		Content: oaiResp.Choices[0].Message.Content,
		Usage:   usage,
		CostUSD: EstimateCost(modelID, usage),
	}, nil
}

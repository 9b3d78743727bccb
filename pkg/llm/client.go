// Package llm implements the Provider Adapter: the only component that
// speaks to the upstream model service. The Orchestrator depends solely
// on the Adapter contract and never on a concrete provider.
package llm

import "context"

// Message is one turn of the conversation sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Parameters carries the caller-supplied sampling knobs from the
// invocation payload. Zero values mean "use the adapter's default".
type Parameters struct {
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Usage reports token accounting for a single invocation.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Result is what a successful Invoke returns: generated text, token
// accounting, and a cost estimate in the provider's currency.
type Result struct {
	Content string
	Usage   Usage
	CostUSD float64
}

// Adapter is invoked synchronously from the Orchestrator's standpoint:
// each request runs on its own goroutine, so Invoke may block for the
// duration of the upstream call. Implementations must honor ctx's
// deadline and return a structured error (via pkg/reasoncode) for
// network, timeout, and remote 4xx/5xx conditions.
type Adapter interface {
	Invoke(ctx context.Context, modelID string, messages []Message, params Parameters) (Result, error)
}

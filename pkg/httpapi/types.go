package httpapi

import (
	"github.com/jowpereira/bradax/pkg/llm"
	"github.com/jowpereira/bradax/pkg/rules"
)

// invokeRequest is the §6 invocation request shape. messages is the
// primary payload; a bare prompt is converted to a single user message
// before the Orchestrator sees it.
type invokeRequest struct {
	Operation string `json:"operation"`
	Model     string `json:"model"`
	Payload   struct {
		Messages    []llm.Message `json:"messages"`
		Prompt      string        `json:"prompt"`
		MaxTokens   int           `json:"max_tokens"`
		Temperature float64       `json:"temperature"`
	} `json:"payload"`
	ProjectID        string       `json:"project_id"`
	CustomGuardrails []rules.Rule `json:"custom_guardrails"`
	RequestID        string       `json:"request_id"`
}

func (r *invokeRequest) messages() []llm.Message {
	if len(r.Payload.Messages) > 0 {
		return r.Payload.Messages
	}
	if r.Payload.Prompt != "" {
		return []llm.Message{{Role: "user", Content: r.Payload.Prompt}}
	}
	return nil
}

// tokenRequest is the /api/v1/auth/token request body.
type tokenRequest struct {
	ProjectID string `json:"project_id"`
	APIKey    string `json:"api_key"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

type validateResponse struct {
	Valid     bool     `json:"valid"`
	ProjectID string   `json:"project_id,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
}

type modelsResponse struct {
	Models []string `json:"models"`
}

type systemInfoResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

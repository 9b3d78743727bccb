// Package telemetry implements the Telemetry Writer: three segregated
// append-only streams (main telemetry, guardrail events, interaction
// stages) plus the raw-response-per-request_id store.
package telemetry

import "time"

// EventType names the tagged variant of a Telemetry Event.
type EventType string

const (
	EventRequestStart    EventType = "request_start"
	EventRequestComplete EventType = "request_complete"
	EventError           EventType = "error"
	EventAuthentication  EventType = "authentication"
	EventClientReported  EventType = "client_reported"
)

// Event is a single entry in the main telemetry stream. Only the fields
// relevant to EventType are populated; the struct is a tagged variant
// flattened for JSON round-tripping (encoding/json requires identical
// field sets to reproduce an event byte-for-byte on decode, so every
// field is always present, zero-valued when unused).
type Event struct {
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	ProjectID string    `json:"project_id,omitempty"`

	// request_complete / error fields
	DurationMS        int64  `json:"duration_ms,omitempty"`
	Model             string `json:"model,omitempty"`
	PromptTokens      int    `json:"prompt_tokens,omitempty"`
	CompletionTokens  int    `json:"completion_tokens,omitempty"`
	TotalTokens       int    `json:"total_tokens,omitempty"`
	CostUSD           float64 `json:"cost_usd,omitempty"`
	Success           bool   `json:"success,omitempty"`
	ReasonCode        string `json:"reason_code,omitempty"`
	GuardrailsTrigger bool   `json:"guardrails_triggered,omitempty"`
	ErrorCategory     string `json:"error_category,omitempty"`
	ErrorCode         string `json:"error_code,omitempty"`

	// authentication fields
	Outcome string `json:"outcome,omitempty"`
	Reason  string `json:"reason,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// GuardrailEvent is a single entry in the guardrail event stream.
type GuardrailEvent struct {
	EventID          string    `json:"event_id"`
	Timestamp        time.Time `json:"timestamp"`
	RequestID        string    `json:"request_id"`
	ProjectID        string    `json:"project_id"`
	RuleID           string    `json:"rule_id"`
	Action           string    `json:"action"`
	Severity         string    `json:"severity"`
	ContentType      string    `json:"content_type"`
	ViolationDetails string    `json:"violation_details"`
}

// InteractionStage is a single entry in the bounded interaction stream
// used for forensic reconstruction of a request's path through the
// pipeline.
type InteractionStage struct {
	RequestID string            `json:"request_id"`
	Timestamp time.Time         `json:"timestamp"`
	Stage     string            `json:"stage"`
	Summary   string            `json:"summary"`
	Result    string            `json:"result"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Package api implements the HTTP envelope layer: RFC 7807 Problem
// Detail responses for native 4xx/5xx categories, and the fail-soft 200
// envelope for guardrail_blocked/provider_error outcomes.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jowpereira/bradax/pkg/reasoncode"
)

// ErrorSink receives one report per error response written, so §7's
// "every error category emits exactly one error telemetry event" holds
// without this package importing the telemetry package directly (that
// would be an import cycle: the telemetry package depends on pkg/auth,
// which depends on this package). errorSink is nil until the server
// wires one in at startup.
type ErrorSink interface {
	RecordErrorEvent(category, code string)
}

var errorSink ErrorSink

// SetErrorSink installs the telemetry sink every error-writing helper in
// this package reports to. Call once, during server startup.
func SetErrorSink(sink ErrorSink) {
	errorSink = sink
}

func recordError(category, code string) {
	if errorSink != nil {
		errorSink.RecordErrorEvent(category, code)
	}
}

// ProblemDetail implements RFC 7807 (Problem Details for HTTP APIs).
// Every native 4xx/5xx response uses this format.
type ProblemDetail struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`
	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`
	// Status is the HTTP status code.
	Status int `json:"status"`
	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`
	// Instance is a URI reference identifying the specific occurrence.
	Instance string `json:"instance,omitempty"`
	// TraceID links to the request's telemetry correlation id.
	TraceID string `json:"trace_id,omitempty"`
	// Code is the stable category-prefixed reasoncode.Code, when known.
	Code string `json:"code,omitempty"`
}

// Error implements the error interface.
func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

// WriteError writes an RFC 7807 Problem Detail JSON response.
func WriteError(w http.ResponseWriter, status int, title, detail string) {
	problem := &ProblemDetail{
		Type:   fmt.Sprintf("https://bradax.dev/errors/%d", status),
		Title:  title,
		Status: status,
		Detail: detail,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteErrorR writes an RFC 7807 response enriched with request context
// (trace_id from X-Request-ID, instance from request URI).
func WriteErrorR(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	problem := &ProblemDetail{
		Type:     fmt.Sprintf("https://bradax.dev/errors/%d", status),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
		TraceID:  w.Header().Get("X-Request-ID"),
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteBadRequest writes a 400 error response.
func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusBadRequest, "Bad Request", detail)
}

// WriteUnauthorized writes a 401 error response.
func WriteUnauthorized(w http.ResponseWriter, detail string) {
	if detail == "" {
		detail = "Authentication required"
	}
	WriteError(w, http.StatusUnauthorized, "Unauthorized", detail)
}

// WriteForbidden writes a 403 error response.
func WriteForbidden(w http.ResponseWriter, detail string) {
	if detail == "" {
		detail = "Insufficient permissions"
	}
	WriteError(w, http.StatusForbidden, "Forbidden", detail)
}

// WriteNotFound writes a 404 error response.
func WriteNotFound(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusNotFound, "Not Found", detail)
}

// WriteMethodNotAllowed writes a 405 error response.
func WriteMethodNotAllowed(w http.ResponseWriter) {
	WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "The HTTP method is not supported for this endpoint")
}

// WriteConflict writes a 409 error response (used for idempotency).
func WriteConflict(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusConflict, "Conflict", detail)
}

// WriteTooManyRequests writes a 429 error response with Retry-After header.
func WriteTooManyRequests(w http.ResponseWriter, retryAfterSecs int) {
	rc := reasoncode.RateLimitExceeded()
	recordError(string(rc.Category), string(rc.Code))
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
	WriteError(w, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded. Retry after the specified interval.")
}

// WriteInternal writes a 500 error response.
// The err parameter is logged but NEVER exposed to the client.
func WriteInternal(w http.ResponseWriter, err error) {
	slog.Error("internal server error", "error", err)
	rc := reasoncode.Internal(err)
	recordError(string(rc.Category), string(rc.Code))
	WriteError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred. Please try again later.")
}

// WriteReasonError renders a *reasoncode.Error as the matching native
// HTTP status for the validation/authentication/authorization/
// rate_limited/internal categories. It must never be called for
// guardrail_blocked or provider_error — those are fail-soft and use
// WriteFailSoft instead.
func WriteReasonError(w http.ResponseWriter, rc *reasoncode.Error) {
	if rc.Category == reasoncode.CategoryInternal {
		WriteInternal(w, rc.Cause)
		return
	}
	recordError(string(rc.Category), string(rc.Code))

	problem := &ProblemDetail{
		Type:   fmt.Sprintf("https://bradax.dev/errors/%s", rc.Code),
		Title:  string(rc.Category),
		Status: rc.HTTPStatus,
		Detail: rc.Reason,
		Code:   string(rc.Code),
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(rc.HTTPStatus)
	_ = json.NewEncoder(w).Encode(problem)
}

// InvocationEnvelope is the §6 invocation response shape. FailSoft
// outcomes (guardrail_blocked, provider_error) always answer HTTP 200
// with success=false and this shape.
type InvocationEnvelope struct {
	Success           bool     `json:"success"`
	RequestID         string   `json:"request_id"`
	ModelUsed         string   `json:"model_used"`
	ReasonCode        string   `json:"reason_code,omitempty"`
	Content           string   `json:"content,omitempty"`
	Usage             *Usage   `json:"usage,omitempty"`
	GuardrailsTrigger bool     `json:"guardrails_triggered,omitempty"`
	TriggeredRules    []string `json:"triggered_rules,omitempty"`
}

// Usage reports token accounting for a completed invocation.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd,omitempty"`
}

// WriteFailSoft answers 200 with success=false and reasonCode, per
// §4.3's fail-soft semantics for guardrail_blocked, provider_error,
// policy_blocked, and validation_error: the caller does not retry a
// policy decision the way it would a native 4xx.
func WriteFailSoft(w http.ResponseWriter, requestID, modelUsed, reasonCode string) {
	env := InvocationEnvelope{
		Success:    false,
		RequestID:  requestID,
		ModelUsed:  modelUsed,
		ReasonCode: reasonCode,
	}
	WriteInvocationResult(w, env)
}

// WriteInvocationResult answers 200 with env, the shared path for both
// the happy path and every fail-soft terminal outcome of an invocation.
func WriteInvocationResult(w http.ResponseWriter, env InvocationEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(env)
}

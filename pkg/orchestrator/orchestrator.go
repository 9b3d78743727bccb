// Package orchestrator implements the LLM Orchestrator: the per-request
// pipeline described in §4.3 — policy check, guard-in, provider call,
// guard-out, completion recording — composed as a chain of small
// functions over an immutable request context plus a mutable outcome.
package orchestrator

import (
	"context"
	"time"

	"github.com/jowpereira/bradax/pkg/api"
	"github.com/jowpereira/bradax/pkg/auth"
	"github.com/jowpereira/bradax/pkg/guardrail"
	"github.com/jowpereira/bradax/pkg/llm"
	"github.com/jowpereira/bradax/pkg/project"
	"github.com/jowpereira/bradax/pkg/reasoncode"
	"github.com/jowpereira/bradax/pkg/rules"
	"github.com/jowpereira/bradax/pkg/telemetry"
)

// Fail-soft reason codes placed in the invocation envelope's reason_code
// field, distinct from the error taxonomy's Category strings in
// pkg/reasoncode: the literal vocabulary §4.3, §5 and §8's seed
// scenarios specify for this endpoint.
const (
	ReasonGuardrailBlocked = "guardrail_blocked"
	ReasonProviderError    = "provider_error"
	ReasonProviderTimeout  = "provider_timeout"
	ReasonPolicyBlocked    = "policy_blocked"
	ReasonValidationError  = "validation_error"
)

// Request is the validated invocation payload the HTTP handler builds
// from the §6 request shape before handing it to the Orchestrator.
// Messages is the primary shape; a bare Prompt has already been
// converted to a single user message by the handler.
type Request struct {
	RequestID        string
	Model            string
	Messages         []llm.Message
	MaxTokens        int
	Temperature      float64
	CustomGuardrails []rules.Rule
}

// Orchestrator drives the pipeline. It holds no per-request state; every
// dependency is a long-lived collaborator shared across goroutines.
type Orchestrator struct {
	projects        *project.Store
	ruleStore       RuleSource
	engine          *guardrail.Engine
	adapter         llm.Adapter
	telemetry       *telemetry.Writer
	providerTimeout time.Duration
}

// RuleSource is the subset of *rules.Store the Orchestrator depends on:
// the current base rule snapshot, captured once per request so a
// mid-flight reload never mixes old and new rules within one evaluation
// (§8 invariant 9).
type RuleSource interface {
	Snapshot() *rules.Set
}

// New builds an Orchestrator. providerTimeout bounds every provider call
// (§5 default 180s).
func New(projects *project.Store, ruleStore RuleSource, engine *guardrail.Engine, adapter llm.Adapter, tw *telemetry.Writer, providerTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		projects:        projects,
		ruleStore:       ruleStore,
		engine:          engine,
		adapter:         adapter,
		telemetry:       tw,
		providerTimeout: providerTimeout,
	}
}

// Invoke runs the full pipeline for one request. A non-nil error means
// an unhandled, internal failure (the caller should answer 5xx); every
// expected outcome — success or a fail-soft terminal state — is encoded
// in the returned envelope with a nil error.
func (o *Orchestrator) Invoke(ctx context.Context, principal *auth.Principal, req Request) (api.InvocationEnvelope, error) {
	start := time.Now()
	o.recordStart(req.RequestID, principal.ProjectID)
	o.recordInteraction(req.RequestID, "auth_ok", "principal verified", "ok", nil)

	proj, err := o.projects.Get(principal.ProjectID)
	if err != nil || !proj.IsActive() || !proj.AllowsModel(req.Model) {
		o.recordInteraction(req.RequestID, "policy_check", "model allow-list check", "blocked", map[string]string{"model": req.Model})
		return o.completeFailSoft(req.RequestID, principal.ProjectID, start, ReasonPolicyBlocked, false, nil), nil
	}
	o.recordInteraction(req.RequestID, "policy_check", "model allow-list check", "ok", nil)

	ruleSet, rcErr := o.composeRuleSet(req.CustomGuardrails)
	if rcErr != nil {
		o.recordInteraction(req.RequestID, "guard_in", "custom guardrail compile", "invalid", map[string]string{"error": rcErr.Error()})
		return o.completeFailSoft(req.RequestID, principal.ProjectID, start, ReasonValidationError, false, nil), nil
	}

	promptText := lastMessageContent(req.Messages)
	inResult, err := o.engine.Evaluate(req.RequestID, principal.ProjectID, promptText, guardrail.ContentPrompt, ruleSet)
	if err != nil {
		return api.InvocationEnvelope{}, err
	}
	o.recordInteraction(req.RequestID, "guard_in", "prompt evaluation", string(inResult.Action), nil)

	if !inResult.Allowed {
		return o.completeFailSoft(req.RequestID, principal.ProjectID, start, ReasonGuardrailBlocked, true, inResult.TriggeredRules), nil
	}
	messages := req.Messages
	if inResult.Action == rules.ActionSanitize {
		messages = replaceLastMessageContent(messages, inResult.SanitizedContent)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.providerTimeout)
	defer cancel()
	result, err := o.adapter.Invoke(callCtx, req.Model, messages, llm.Parameters{MaxTokens: req.MaxTokens, Temperature: req.Temperature})
	if err != nil {
		o.recordInteraction(req.RequestID, "provider_call", "upstream invocation", "error", map[string]string{"error": err.Error()})
		if o.telemetry != nil {
			_ = o.telemetry.SaveRawResponse(req.RequestID, []byte(err.Error()))
		}
		reason := ReasonProviderError
		if rc, ok := reasoncode.As(err); ok && rc.Code == reasoncode.ProvTimeout {
			reason = ReasonProviderTimeout
		}
		return o.completeFailSoft(req.RequestID, principal.ProjectID, start, reason, false, nil), nil
	}
	o.recordInteraction(req.RequestID, "provider_call", "upstream invocation", "ok", nil)

	outResult, err := o.engine.Evaluate(req.RequestID, principal.ProjectID, result.Content, guardrail.ContentResponse, ruleSet)
	if err != nil {
		return api.InvocationEnvelope{}, err
	}
	o.recordInteraction(req.RequestID, "guard_out", "response evaluation", string(outResult.Action), nil)

	triggered := append(append([]string{}, inResult.TriggeredRules...), outResult.TriggeredRules...)
	guardrailsTriggered := len(triggered) > 0

	if !outResult.Allowed {
		return o.completeFailSoft(req.RequestID, principal.ProjectID, start, ReasonGuardrailBlocked, true, triggered), nil
	}
	content := result.Content
	if outResult.Action == rules.ActionSanitize {
		content = outResult.SanitizedContent
	}

	o.recordInteraction(req.RequestID, "completed", "invocation succeeded", "ok", nil)
	env := api.InvocationEnvelope{
		Success:           true,
		RequestID:         req.RequestID,
		ModelUsed:         req.Model,
		Content:           content,
		GuardrailsTrigger: guardrailsTriggered,
		TriggeredRules:    triggered,
		Usage: &api.Usage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
			CostUSD:          result.CostUSD,
		},
	}
	o.recordComplete(req.RequestID, principal.ProjectID, start, req.Model, true, "", result.Usage, result.CostUSD, guardrailsTriggered)
	return env, nil
}

// composeRuleSet validates and compiles caller-provided custom rules and
// extends the base snapshot with them, never mutating the shared store.
func (o *Orchestrator) composeRuleSet(custom []rules.Rule) (*rules.Set, *reasoncode.Error) {
	base := o.ruleStore.Snapshot()
	if len(custom) == 0 {
		return base, nil
	}
	compiled := make([]*rules.Compiled, 0, len(custom))
	for _, r := range custom {
		c, err := rules.Compile(r)
		if err != nil {
			return nil, reasoncode.InvalidGuardrail(err)
		}
		compiled = append(compiled, c)
	}
	return base.Extend(compiled...), nil
}

// completeFailSoft records the request_complete event and builds the
// envelope for a fail-soft terminal outcome. model_used is set to the
// reason code itself, not the requested model id, matching §4.3's
// fail-soft semantics for every terminal reason.
func (o *Orchestrator) completeFailSoft(requestID, projectID string, start time.Time, reasonCode string, guardrailsTriggered bool, triggeredRules []string) api.InvocationEnvelope {
	o.recordComplete(requestID, projectID, start, reasonCode, false, reasonCode, llm.Usage{}, 0, guardrailsTriggered)
	return api.InvocationEnvelope{
		Success:           false,
		RequestID:         requestID,
		ModelUsed:         reasonCode,
		ReasonCode:        reasonCode,
		GuardrailsTrigger: guardrailsTriggered,
		TriggeredRules:    triggeredRules,
	}
}

func (o *Orchestrator) recordStart(requestID, projectID string) {
	if o.telemetry == nil {
		return
	}
	_ = o.telemetry.RecordEvent(telemetry.Event{
		EventType: telemetry.EventRequestStart,
		RequestID: requestID,
		ProjectID: projectID,
	})
}

func (o *Orchestrator) recordComplete(requestID, projectID string, start time.Time, model string, success bool, reasonCode string, usage llm.Usage, costUSD float64, guardrailsTriggered bool) {
	if o.telemetry == nil {
		return
	}
	_ = o.telemetry.RecordEvent(telemetry.Event{
		EventType:         telemetry.EventRequestComplete,
		RequestID:         requestID,
		ProjectID:         projectID,
		DurationMS:        time.Since(start).Milliseconds(),
		Model:             model,
		PromptTokens:      usage.PromptTokens,
		CompletionTokens:  usage.CompletionTokens,
		TotalTokens:       usage.TotalTokens,
		CostUSD:           costUSD,
		Success:           success,
		ReasonCode:        reasonCode,
		GuardrailsTrigger: guardrailsTriggered,
	})
}

func (o *Orchestrator) recordInteraction(requestID, stage, summary, result string, metadata map[string]string) {
	if o.telemetry == nil {
		return
	}
	_ = o.telemetry.RecordInteraction(telemetry.InteractionStage{
		RequestID: requestID,
		Stage:     stage,
		Summary:   summary,
		Result:    result,
		Metadata:  metadata,
	})
}

func lastMessageContent(messages []llm.Message) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Content
}

func replaceLastMessageContent(messages []llm.Message, content string) []llm.Message {
	if len(messages) == 0 {
		return messages
	}
	out := make([]llm.Message, len(messages))
	copy(out, messages)
	out[len(out)-1].Content = content
	return out
}

// Package guardrail implements the two-phase deterministic Guardrail
// Engine: whitelist suppression, keyword matching, and regex matching,
// aggregated into a single dominant action per evaluation.
package guardrail

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jowpereira/bradax/pkg/rules"
)

// ContentType names which side of a request is being evaluated.
type ContentType string

const (
	ContentPrompt   ContentType = "prompt"
	ContentResponse ContentType = "response"
)

// excerptBudget bounds how much raw content a violation detail may carry.
const excerptBudget = 200

// Result is the outcome of evaluating one piece of content against a
// rule set.
type Result struct {
	Allowed          bool
	TriggeredRules   []string
	Action           rules.Action
	Severity         rules.Severity
	SanitizedContent string
	Reason           string
	ContentType      ContentType
	ProjectID        string
	TotalRulesChecked int
}

// Trigger records which rule fired and why, used both to build Result
// and to emit one Guardrail Event per trigger.
type Trigger struct {
	RuleID    string
	Severity  rules.Severity
	Action    rules.Action
	Excerpt   string
}

// EventSink receives one notification per triggered rule. Implemented by
// pkg/telemetry; kept as an interface here so the engine has no
// dependency on the telemetry stream's storage format.
type EventSink interface {
	RecordGuardrailEvent(requestID, projectID string, t Trigger, contentType ContentType) error
}

// Engine evaluates content against an explicit rule set. It holds no
// state across requests; callers pass the rule set (base store snapshot
// plus any per-request custom rules) on every call.
type Engine struct {
	sink EventSink
}

// New builds an Engine that reports triggers to sink. sink may be nil in
// tests that don't care about telemetry side effects.
func New(sink EventSink) *Engine {
	return &Engine{sink: sink}
}

// Evaluate runs the two-phase evaluation described in the component
// design: whitelist check, then keyword/regex match, per enabled rule;
// aggregates to a dominant action; sanitizes if that action is
// ActionSanitize; emits one guardrail event per trigger. It never
// mutates content.
//
// A panic or internal error from an individual rule's evaluation is
// caught and converted into a synthetic block trigger: the engine is
// fail-closed, never fail-open, on its own internal errors.
func (e *Engine) Evaluate(requestID, projectID string, content string, contentType ContentType, set *rules.Set) (Result, error) {
	var triggers []Trigger
	checked := 0

	for _, c := range set.Rules() {
		if !c.Rule().Enabled {
			continue
		}
		checked++

		trig, fired, err := e.evaluateRule(c, content)
		if err != nil {
			// Fail-closed: an internal engine error defaults the
			// request's dominant action to block.
			triggers = append(triggers, Trigger{
				RuleID:   c.Rule().RuleID,
				Severity: rules.SeverityCritical,
				Action:   rules.ActionBlock,
				Excerpt:  "engine error: " + err.Error(),
			})
			continue
		}
		if fired {
			triggers = append(triggers, trig)
		}
	}

	result := aggregate(triggers, contentType, projectID, checked)

	if result.Action == rules.ActionSanitize {
		result.SanitizedContent = sanitizeAll(content, set, triggers)
	}

	if e.sink != nil {
		for _, t := range triggers {
			if err := e.sink.RecordGuardrailEvent(requestID, projectID, t, contentType); err != nil {
				return result, fmt.Errorf("guardrail: record event for rule %s: %w", t.RuleID, err)
			}
		}
	}

	return result, nil
}

func (e *Engine) evaluateRule(c *rules.Compiled, content string) (trig Trigger, fired bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic evaluating rule %s: %v", c.Rule().RuleID, r)
		}
	}()

	if c.MatchesWhitelist(content) {
		return Trigger{}, false, nil
	}

	if c.MatchesKeyword(content) || c.MatchesPattern(content) {
		return Trigger{
			RuleID:   c.Rule().RuleID,
			Severity: c.Rule().Severity,
			Action:   c.Rule().Action,
			Excerpt:  excerpt(content),
		}, true, nil
	}

	return Trigger{}, false, nil
}

func aggregate(triggers []Trigger, contentType ContentType, projectID string, checked int) Result {
	ruleIDs := make([]string, 0, len(triggers))
	actions := make([]rules.Action, 0, len(triggers))
	maxSeverity := rules.Severity("")

	for _, t := range triggers {
		ruleIDs = append(ruleIDs, t.RuleID)
		actions = append(actions, t.Action)
		if t.Severity.Rank() > maxSeverity.Rank() {
			maxSeverity = t.Severity
		}
	}

	dominant := rules.DominantAction(actions)
	reason := "no rule triggered"
	if len(triggers) > 0 {
		reason = fmt.Sprintf("%d rule(s) triggered, dominant action %s", len(triggers), dominant)
	}

	return Result{
		Allowed:           dominant != rules.ActionBlock,
		TriggeredRules:    ruleIDs,
		Action:            dominant,
		Severity:          maxSeverity,
		Reason:            reason,
		ContentType:       contentType,
		ProjectID:         projectID,
		TotalRulesChecked: checked,
	}
}

func sanitizeAll(content string, set *rules.Set, triggers []Trigger) string {
	triggered := make(map[string]struct{}, len(triggers))
	for _, t := range triggers {
		triggered[t.RuleID] = struct{}{}
	}

	out := content
	for _, c := range set.Rules() {
		if _, ok := triggered[c.Rule().RuleID]; !ok {
			continue
		}
		out = c.Sanitize(out)
	}
	return out
}

func excerpt(content string) string {
	if len(content) <= excerptBudget {
		return content
	}
	return content[:excerptBudget] + "…"
}

// NewEventID generates an identifier for a guardrail event.
func NewEventID() string { return uuid.NewString() }

// Now is the wall-clock time stamped on new guardrail events. A variable
// so tests can substitute a fixed clock.
var Now = time.Now

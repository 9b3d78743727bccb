package telemetry

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jowpereira/bradax/pkg/auth"
	"github.com/jowpereira/bradax/pkg/guardrail"
	"github.com/jowpereira/bradax/pkg/store"
)

// Writer persists the three segregated streams and the raw-response
// store. Each stream has its own lock (inside its AppendStream); callers
// never block on distinct streams.
type Writer struct {
	telemetry    *store.AppendStream
	guardrail    *store.AppendStream
	interactions *store.AppendStream
	rawDir       string
}

// Open loads (or creates) the three stream files under dataDir and
// returns a ready Writer. interactionCap bounds the interaction stream;
// 0 disables trimming.
func Open(dataDir string, interactionCap int) (*Writer, error) {
	telemetryStream, err := store.OpenAppendStream(filepath.Join(dataDir, "telemetry.json"), 0)
	if err != nil {
		return nil, err
	}
	guardrailStream, err := store.OpenAppendStream(filepath.Join(dataDir, "guardrail_events.json"), 0)
	if err != nil {
		return nil, err
	}
	interactionStream, err := store.OpenAppendStream(filepath.Join(dataDir, "interactions.json"), interactionCap)
	if err != nil {
		return nil, err
	}

	return &Writer{
		telemetry:    telemetryStream,
		guardrail:    guardrailStream,
		interactions: interactionStream,
		rawDir:       filepath.Join(dataDir, "raw", "responses"),
	}, nil
}

// RecordEvent appends event to the main telemetry stream. The write must
// be durable before this returns.
func (w *Writer) RecordEvent(e Event) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if err := w.telemetry.Append(e); err != nil {
		return fmt.Errorf("telemetry: record event: %w", err)
	}
	return nil
}

// RecordAuthResult implements auth.FailureSink: every token issuance or
// verification attempt, successful or not, is logged as an
// authentication event, never carrying the token or secret material.
func (w *Writer) RecordAuthResult(outcome, reason, projectID string) {
	_ = w.RecordEvent(Event{
		EventType: EventAuthentication,
		ProjectID: projectID,
		Outcome:   outcome,
		Reason:    reason,
	})
}

// RecordErrorEvent implements api.ErrorSink (satisfied structurally, to
// avoid importing pkg/api here): §7 requires every error category to
// emit exactly one `error` telemetry event carrying the category and
// its machine-readable code.
func (w *Writer) RecordErrorEvent(category, code string) {
	_ = w.RecordEvent(Event{
		EventType:     EventError,
		ErrorCategory: category,
		ErrorCode:     code,
	})
}

// RecordGuardrailEvent implements guardrail.EventSink: one call per
// triggered rule, carrying a redacted excerpt rather than full content.
func (w *Writer) RecordGuardrailEvent(requestID, projectID string, t guardrail.Trigger, ct guardrail.ContentType) error {
	evt := GuardrailEvent{
		EventID:          uuid.NewString(),
		Timestamp:        guardrail.Now().UTC(),
		RequestID:        requestID,
		ProjectID:        projectID,
		RuleID:           t.RuleID,
		Action:           string(t.Action),
		Severity:         string(t.Severity),
		ContentType:      string(ct),
		ViolationDetails: t.Excerpt,
	}
	if err := w.guardrail.Append(evt); err != nil {
		return fmt.Errorf("telemetry: record guardrail event: %w", err)
	}
	return nil
}

// RecordInteraction appends a forensic stage entry. The stream is
// bounded: after append, if entries exceed the configured cap, the
// oldest are trimmed in a single compaction pass (handled inside
// AppendStream).
func (w *Writer) RecordInteraction(stage InteractionStage) error {
	if err := w.interactions.Append(stage); err != nil {
		return fmt.Errorf("telemetry: record interaction: %w", err)
	}
	return nil
}

// InteractionCount reports the current size of the bounded interaction
// stream, for tests asserting the cap-settling boundary behavior.
func (w *Writer) InteractionCount() int {
	return w.interactions.Len()
}

// SaveRawResponse persists the provider's raw response body for a failed
// or guardrail-blocked request, keyed by request_id.
func (w *Writer) SaveRawResponse(requestID string, body []byte) error {
	path := filepath.Join(w.rawDir, requestID+".json")
	if err := store.WriteAtomic(path, rawEnvelope{RequestID: requestID, Body: string(body)}); err != nil {
		return fmt.Errorf("telemetry: save raw response for %s: %w", requestID, err)
	}
	return nil
}

type rawEnvelope struct {
	RequestID string `json:"request_id"`
	Body      string `json:"body"`
}

// Aggregate scans the main telemetry stream and summarizes activity for
// a single project.
type Aggregate struct {
	ProjectID      string  `json:"project_id"`
	RequestCount   int     `json:"request_count"`
	ErrorCount     int     `json:"error_count"`
	ErrorRate      float64 `json:"error_rate"`
	TotalTokens    int     `json:"total_tokens"`
	MeanDurationMS float64 `json:"mean_duration_ms"`
	ModelMix       map[string]int `json:"model_mix"`
}

// Aggregate computes summary statistics for projectID over the current
// contents of the main telemetry stream.
func (w *Writer) Aggregate(projectID string) (Aggregate, error) {
	agg := Aggregate{ProjectID: projectID, ModelMix: map[string]int{}}

	var completions int
	var durationSum int64

	err := w.telemetry.Each(func() interface{} { return &Event{} }, func(v interface{}) error {
		e := v.(*Event)
		if e.ProjectID != projectID {
			return nil
		}
		switch e.EventType {
		case EventRequestComplete:
			agg.RequestCount++
			completions++
			durationSum += e.DurationMS
			agg.TotalTokens += e.TotalTokens
			if !e.Success {
				agg.ErrorCount++
			}
			if e.Model != "" {
				agg.ModelMix[e.Model]++
			}
		case EventError:
			agg.ErrorCount++
		}
		return nil
	})
	if err != nil {
		return Aggregate{}, fmt.Errorf("telemetry: aggregate %s: %w", projectID, err)
	}

	if completions > 0 {
		agg.MeanDurationMS = float64(durationSum) / float64(completions)
	}
	if agg.RequestCount > 0 {
		agg.ErrorRate = float64(agg.ErrorCount) / float64(agg.RequestCount)
	}
	return agg, nil
}

// compile-time assertions that Writer satisfies the interfaces the
// Guardrail Engine and Auth Service depend on.
var _ guardrail.EventSink = (*Writer)(nil)
var _ auth.FailureSink = (*Writer)(nil)

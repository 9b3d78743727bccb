package telemetry_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jowpereira/bradax/pkg/guardrail"
	"github.com/jowpereira/bradax/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEvent_StartThenComplete(t *testing.T) {
	w, err := telemetry.Open(t.TempDir(), 0)
	require.NoError(t, err)

	reqID := uuid.NewString()
	require.NoError(t, w.RecordEvent(telemetry.Event{
		EventType: telemetry.EventRequestStart,
		RequestID: reqID,
		ProjectID: "proj_a",
	}))
	require.NoError(t, w.RecordEvent(telemetry.Event{
		EventType:  telemetry.EventRequestComplete,
		RequestID:  reqID,
		ProjectID:  "proj_a",
		Success:    true,
		Model:      "gpt-4.1-nano",
		TotalTokens: 42,
		DurationMS:  100,
	}))

	agg, err := w.Aggregate("proj_a")
	require.NoError(t, err)
	assert.Equal(t, 1, agg.RequestCount)
	assert.Equal(t, 0, agg.ErrorCount)
	assert.Equal(t, 42, agg.TotalTokens)
	assert.Equal(t, 1, agg.ModelMix["gpt-4.1-nano"])
}

func TestRecordGuardrailEvent_ImplementsEventSink(t *testing.T) {
	w, err := telemetry.Open(t.TempDir(), 0)
	require.NoError(t, err)

	require.NoError(t, w.RecordGuardrailEvent("req-1", "proj_a", guardrail.Trigger{
		RuleID:   "no_python",
		Severity: "high",
		Action:   "block",
		Excerpt:  "write python",
	}, guardrail.ContentPrompt))
}

func TestInteractionStream_SettlesAtCap(t *testing.T) {
	w, err := telemetry.Open(t.TempDir(), 3)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, w.RecordInteraction(telemetry.InteractionStage{
			RequestID: uuid.NewString(),
			Stage:     "auth",
		}))
	}

	assert.Equal(t, 3, w.InteractionCount())
}

func TestSaveRawResponse(t *testing.T) {
	w, err := telemetry.Open(t.TempDir(), 0)
	require.NoError(t, err)

	require.NoError(t, w.SaveRawResponse("req-xyz", []byte(`{"error":"timeout"}`)))
}

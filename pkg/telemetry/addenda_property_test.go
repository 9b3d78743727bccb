//go:build property
// +build property

package telemetry_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/jowpereira/bradax/pkg/telemetry"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestEvent_SerializationRoundTrips verifies §8's round-trip invariant:
// serializing and deserializing a Telemetry Event yields an identical
// event.
func TestEvent_SerializationRoundTrips(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("event survives a marshal/unmarshal cycle unchanged", prop.ForAll(
		func(requestID, projectID, model string, totalTokens int, success bool) bool {
			original := telemetry.Event{
				EventID:      "evt-1",
				EventType:    telemetry.EventRequestComplete,
				RequestID:    requestID,
				ProjectID:    projectID,
				Model:        model,
				TotalTokens:  totalTokens,
				Success:      success,
			}

			raw, err := json.Marshal(original)
			if err != nil {
				return false
			}

			var decoded telemetry.Event
			if err := json.Unmarshal(raw, &decoded); err != nil {
				return false
			}

			return reflect.DeepEqual(decoded, original)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.IntRange(0, 1_000_000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

package httpapi

import "testing"

func TestValidateInvokeShape_AcceptsWellFormedRequest(t *testing.T) {
	raw := []byte(`{"operation":"chat","model":"gpt-4.1-nano","project_id":"proj_real_001","payload":{"messages":[{"role":"user","content":"hi"}]}}`)
	if err := validateInvokeShape(raw); err != nil {
		t.Fatalf("expected valid shape, got %v", err)
	}
}

func TestValidateInvokeShape_RejectsMissingModel(t *testing.T) {
	raw := []byte(`{"operation":"chat","project_id":"proj_real_001","payload":{"prompt":"hi"}}`)
	if err := validateInvokeShape(raw); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestValidateInvokeShape_RejectsUnknownOperation(t *testing.T) {
	raw := []byte(`{"operation":"delete","model":"gpt-4.1-nano","project_id":"proj_real_001","payload":{"prompt":"hi"}}`)
	if err := validateInvokeShape(raw); err == nil {
		t.Fatal("expected error for unknown operation")
	}
}

func TestValidateInvokeShape_RejectsMalformedJSON(t *testing.T) {
	raw := []byte(`{not json`)
	if err := validateInvokeShape(raw); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

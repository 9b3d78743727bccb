package reasoncode_test

import (
	"fmt"
	"testing"

	"github.com/jowpereira/bradax/pkg/reasoncode"
	"github.com/stretchr/testify/assert"
)

func TestAs_ExtractsClassifiedError(t *testing.T) {
	cause := fmt.Errorf("boom")
	wrapped := fmt.Errorf("invoke failed: %w", reasoncode.ProviderError(cause))

	e, ok := reasoncode.As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, reasoncode.ProvError, e.Code)
	assert.Equal(t, reasoncode.CategoryProvider, e.Category)
}

func TestAs_FalseForPlainError(t *testing.T) {
	_, ok := reasoncode.As(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestGuardrailBlocked_CarriesReason(t *testing.T) {
	e := reasoncode.GuardrailBlocked("no_python triggered")
	assert.Equal(t, reasoncode.GuardBlocked, e.Code)
	assert.Contains(t, e.Reason, "no_python")
}

func TestWithDetail_AppendsWhenNonEmpty(t *testing.T) {
	e := reasoncode.ModelNotAllowed("gpt-9")
	assert.Contains(t, e.Reason, "gpt-9")

	e2 := reasoncode.UnknownProject("")
	assert.NotContains(t, e2.Reason, ":")
}

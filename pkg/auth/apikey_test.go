package auth_test

import (
	"testing"

	"github.com/jowpereira/bradax/pkg/auth"
	"github.com/stretchr/testify/assert"
)

func TestVerifyAPIKey_AcceptsPrefixMatch(t *testing.T) {
	presented := "bdx_projreal001_acme_abc123extra_1700000000"
	assert.True(t, auth.VerifyAPIKey(presented, "abc123"))
}

func TestVerifyAPIKey_RejectsSubstringThatIsNotAPrefix(t *testing.T) {
	presented := "bdx_projreal001_acme_xabc123_1700000000"
	assert.False(t, auth.VerifyAPIKey(presented, "abc123"))
}

func TestVerifyAPIKey_RejectsWrongShape(t *testing.T) {
	assert.False(t, auth.VerifyAPIKey("not-structured", "abc123"))
}

func TestVerifyAPIKey_RejectsEmptyStoredHash(t *testing.T) {
	assert.False(t, auth.VerifyAPIKey("bdx_p_o_abc123_1", ""))
}

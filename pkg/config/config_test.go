package config_test

import (
	"testing"

	"github.com/jowpereira/bradax/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "this-is-a-32-byte-or-longer-test-secret"

// TestLoad_Defaults verifies that Load() returns sensible defaults
// when only the required secrets are set.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ENV", "")
	t.Setenv("MASTER_JWT_SECRET", testSecret)
	t.Setenv("PROVIDER_API_KEY", "sk-test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 15, cfg.JWTExpireMinutes)
	assert.Equal(t, 5000, cfg.InteractionStreamCap)
	assert.False(t, cfg.IsProduction())
}

// TestLoad_Overrides verifies that environment variables correctly
// override default values.
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ENV", "production")
	t.Setenv("MASTER_JWT_SECRET", testSecret)
	t.Setenv("PROVIDER_API_KEY", "sk-test")
	t.Setenv("JWT_EXPIRE_MINUTES", "30")
	t.Setenv("RATE_LIMIT_RPM", "120")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 30, cfg.JWTExpireMinutes)
	assert.Equal(t, 120, cfg.RateLimitRPM)
}

// TestLoad_RefusesWeakSecret verifies fail-fast behavior when the master
// secret is missing or too short.
func TestLoad_RefusesWeakSecret(t *testing.T) {
	t.Setenv("MASTER_JWT_SECRET", "too-short")
	t.Setenv("PROVIDER_API_KEY", "sk-test")

	_, err := config.Load()
	require.Error(t, err)
}

// TestLoad_RefusesMissingProviderKey verifies fail-fast behavior when the
// provider API key is absent.
func TestLoad_RefusesMissingProviderKey(t *testing.T) {
	t.Setenv("MASTER_JWT_SECRET", testSecret)
	t.Setenv("PROVIDER_API_KEY", "")

	_, err := config.Load()
	require.Error(t, err)
}

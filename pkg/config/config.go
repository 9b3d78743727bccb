package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds server configuration. It is assembled once at startup;
// handlers never read the environment directly.
type Config struct {
	Port     string
	LogLevel string
	Env      string
	DataDir  string

	MasterJWTSecret string
	ProviderAPIKey  string

	JWTExpireMinutes int

	RateLimitRPM  int
	RateLimitRPH  int
	MaxConcurrent int

	ProviderTimeoutSeconds int
	InteractionStreamCap   int
}

// IsProduction reports whether ENV selects production behavior. The only
// behavior it switches is CORS (off in production); log verbosity is set
// by LOG_LEVEL alone.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

const minSecretEntropyBytes = 32

// Load reads configuration from the environment. It fails closed: a missing
// or too-weak MASTER_JWT_SECRET, or a missing PROVIDER_API_KEY, refuses to
// start rather than run with an unsafe default.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                   envOrDefault("PORT", "8080"),
		LogLevel:               envOrDefault("LOG_LEVEL", "INFO"),
		Env:                    envOrDefault("ENV", "development"),
		DataDir:                envOrDefault("DATA_DIR", "data"),
		MasterJWTSecret:        os.Getenv("MASTER_JWT_SECRET"),
		ProviderAPIKey:         os.Getenv("PROVIDER_API_KEY"),
		JWTExpireMinutes:       envOrDefaultInt("JWT_EXPIRE_MINUTES", 15),
		RateLimitRPM:           envOrDefaultInt("RATE_LIMIT_RPM", 60),
		RateLimitRPH:           envOrDefaultInt("RATE_LIMIT_RPH", 1000),
		MaxConcurrent:          envOrDefaultInt("MAX_CONCURRENT", 50),
		ProviderTimeoutSeconds: envOrDefaultInt("PROVIDER_TIMEOUT_SECONDS", 180),
		InteractionStreamCap:   envOrDefaultInt("INTERACTION_STREAM_CAP", 5000),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.MasterJWTSecret) < minSecretEntropyBytes {
		return fmt.Errorf("config: MASTER_JWT_SECRET must be set with at least %d bytes of entropy", minSecretEntropyBytes)
	}
	if c.ProviderAPIKey == "" {
		return fmt.Errorf("config: PROVIDER_API_KEY must be set")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

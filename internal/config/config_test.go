package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(c *Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterServeFlags(fs, c)
	RegisterProviderFlags(fs, c)
	return fs
}

func TestDefaultsAreValid(t *testing.T) {
	var c Config
	fs := newFlags(&c)
	require.NoError(t, fs.Parse(nil))
	require.NoError(t, c.Validate())
	assert.Equal(t, 5175, c.Port)
	assert.Equal(t, []string{ProviderVectors}, c.EnabledProviders())
	assert.Equal(t, 2*time.Hour, c.SessionTTL)
}

func TestBindEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("CONCEPTNET_RPS", "0.5")
	t.Setenv("PROVIDERS", "vectors,conceptnet")
	t.Setenv("UNKNOWN_WORDS", "flag")
	t.Setenv("PROVIDER_SCALING", "conceptnet=linear,vectors=relative")

	var c Config
	fs := newFlags(&c)
	require.NoError(t, fs.Parse([]string{"--log-level", "warn"}))
	BindEnv(fs)

	assert.Equal(t, 9090, c.Port)
	assert.Equal(t, "warn", c.LogLevel, "command line wins")
	assert.Equal(t, 15*time.Minute, c.SessionTTL)
	assert.InDelta(t, 0.5, c.ConceptNetRPS, 1e-9)
	assert.Equal(t, []string{"vectors", "conceptnet"}, c.EnabledProviders())
	assert.Equal(t, "flag", c.UnknownWords)
	assert.Equal(t, "linear", c.ScalingFor(ProviderConceptNet))
	assert.Equal(t, "relative", c.ScalingFor(ProviderVectors))
	require.NoError(t, c.Validate())
}

func TestScalingFor(t *testing.T) {
	var c Config
	fs := newFlags(&c)
	require.NoError(t, fs.Parse(nil))
	assert.Equal(t, "shifted", c.ScalingFor(ProviderConceptNet), "relatedness scores default to shifted")
	assert.Equal(t, "linear", c.ScalingFor(ProviderVectors))

	require.NoError(t, fs.Parse([]string{"--scaling", "relative"}))
	assert.Equal(t, "relative", c.ScalingFor(ProviderOpenAI))
	assert.Equal(t, "shifted", c.ScalingFor(ProviderConceptNet))
}

func TestValidate(t *testing.T) {
	base := func() Config {
		var c Config
		fs := newFlags(&c)
		_ = fs.Parse(nil)
		return c
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad port", func(c *Config) { c.Port = 0 }, "invalid port"},
		{"unknown provider", func(c *Config) { c.Provider = "bert" }, "unknown provider"},
		{"openai without key", func(c *Config) { c.Providers = []string{"openai"} }, "openai-api-key"},
		{"pgvector without dsn", func(c *Config) { c.Provider = "pgvector" }, "pgvector-dsn"},
		{"bad scaling", func(c *Config) { c.Scaling = "log" }, "scaling"},
		{"bad provider scaling", func(c *Config) { c.ProviderScaling = map[string]string{"vectors": "log"} }, "provider scaling vectors"},
		{"provider scaling for unknown provider", func(c *Config) { c.ProviderScaling = map[string]string{"bert": "linear"} }, "unknown provider"},
		{"bad policy", func(c *Config) { c.UnknownWords = "ignore" }, "unknown words policy"},
		{"prod default secret", func(c *Config) { c.AppEnv = "production" }, "JWT_SECRET"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log format"},
		{"zero cache", func(c *Config) { c.CacheSize = 0 }, "cache size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestEnabledProvidersIncludesDefault(t *testing.T) {
	c := Config{Provider: "conceptnet", Providers: []string{"vectors", " vectors ", ""}}
	assert.Equal(t, []string{"vectors", "conceptnet"}, c.EnabledProviders())
}

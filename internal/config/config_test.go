package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "sourcing.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 100, cfg.Apollo.PageSize)
	assert.Equal(t, 1100, cfg.ContactOut.DelayMs)
	assert.Equal(t, 50, cfg.Pipeline.MaxCandidates)
	assert.Equal(t, 3, cfg.Pipeline.MaxSearchRetries)
	assert.Equal(t, 5, cfg.Pipeline.ScoreConcurrency)
	assert.NotEmpty(t, cfg.Anthropic.ParseModel)
	assert.NotEmpty(t, cfg.Anthropic.ScoreModel)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SOURCING_APOLLO_KEY", "env-key")
	t.Setenv("SOURCING_STORE_DRIVER", "postgres")
	t.Setenv("SOURCING_PIPELINE_MAX_CANDIDATES", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Apollo.Key)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 10, cfg.Pipeline.MaxCandidates)
}

func TestValidate_MissingKeys(t *testing.T) {
	cfg := &Config{}
	cfg.Apollo.Key = "a"
	cfg.ContactOut.Key = "b"
	cfg.ScrapIn.Key = "c"
	cfg.Anthropic.Key = "d"
	require.NoError(t, cfg.Validate())

	for _, tc := range []struct {
		name  string
		strip func(*Config)
		want  string
	}{
		{"apollo", func(c *Config) { c.Apollo.Key = "" }, "apollo.key"},
		{"contactout", func(c *Config) { c.ContactOut.Key = "" }, "contactout.key"},
		{"scrapin", func(c *Config) { c.ScrapIn.Key = "" }, "scrapin.key"},
		{"anthropic", func(c *Config) { c.Anthropic.Key = "" }, "anthropic.key"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			broken := *cfg
			tc.strip(&broken)
			err := broken.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

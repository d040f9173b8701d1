package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBytesDefaults(t *testing.T) {
	cfg, err := LoadBytes(nil)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)

	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 5*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 2.0, cfg.Retry.BackoffMultiplier)
	assert.True(t, cfg.Retry.Jitter)

	assert.Equal(t, 2, cfg.RateLimit.DefaultLimit)
	assert.Equal(t, time.Second, cfg.RateLimit.DefaultWindow)
	assert.Empty(t, cfg.RateLimit.Buckets)
}

func TestLoadBytesOverridesDefaults(t *testing.T) {
	content := []byte(`
log:
  level: debug
  pretty: true
retry:
  maxattempts: 5
  basedelay: 100ms
  maxdelay: 2s
  backoffmultiplier: 1.5
  jitter: false
ratelimit:
  defaultlimit: 10
  defaultwindow: 500ms
  buckets:
    bybit.v5.market:
      limit: 20
      window: 1s
    bybit.v5.order:
      limit: 5
      window: 1s
      algorithm: token
`)

	cfg, err := LoadBytes(content)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 2*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 1.5, cfg.Retry.BackoffMultiplier)
	assert.False(t, cfg.Retry.Jitter)

	assert.Equal(t, 10, cfg.RateLimit.DefaultLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.RateLimit.DefaultWindow)
	require.Len(t, cfg.RateLimit.Buckets, 2)
	assert.Equal(t, BucketConfig{Limit: 20, Window: time.Second}, cfg.RateLimit.Buckets["bybit.v5.market"])
	assert.Equal(t, "token", cfg.RateLimit.Buckets["bybit.v5.order"].Algorithm)
}

func TestLoadBytesRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name:    "negative max attempts",
			content: "retry:\n  maxattempts: -1\n",
			field:   "retry.maxattempts",
		},
		{
			name:    "zero base delay",
			content: "retry:\n  basedelay: 0s\n",
			field:   "retry.basedelay",
		},
		{
			name:    "max delay below base delay",
			content: "retry:\n  basedelay: 2s\n  maxdelay: 1s\n",
			field:   "retry.maxdelay",
		},
		{
			name:    "multiplier below one",
			content: "retry:\n  backoffmultiplier: 0.5\n",
			field:   "retry.backoffmultiplier",
		},
		{
			name:    "zero default limit",
			content: "ratelimit:\n  defaultlimit: 0\n",
			field:   "ratelimit.defaultlimit",
		},
		{
			name:    "negative bucket limit",
			content: "ratelimit:\n  buckets:\n    spot:\n      limit: -5\n      window: 1s\n",
			field:   "limit",
		},
		{
			name:    "unknown bucket algorithm",
			content: "ratelimit:\n  buckets:\n    spot:\n      limit: 5\n      window: 1s\n      algorithm: leaky\n",
			field:   "algorithm",
		},
		{
			name:    "unknown log level",
			content: "log:\n  level: verbose\n",
			field:   "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tt.content))
			require.Error(t, err)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "invalid", cfgErr.Category)
			assert.Contains(t, cfgErr.Field, tt.field)
		})
	}
}

func TestLoadBytesMalformedYAML(t *testing.T) {
	_, err := LoadBytes([]byte("retry: ["))
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("EXKIT_RETRY_MAXATTEMPTS", "7")
	t.Setenv("EXKIT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestConfigErrorFormatting(t *testing.T) {
	err := NewInvalidFieldError("retry.basedelay", `failed "gt" validation`)
	assert.Contains(t, err.Error(), "config_invalid:")
	assert.Contains(t, err.Error(), "retry.basedelay")

	missing := NewMissingFieldError("log.level", "EXKIT_LOG_LEVEL", "log.level")
	assert.Contains(t, missing.Error(), "config_missing:")
	assert.Contains(t, missing.Error(), "EXKIT_LOG_LEVEL")
}

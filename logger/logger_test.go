package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaultsToInfoLevel(t *testing.T) {
	log := New("not-a-level", false)
	assert.NotNil(t, log)
	// Events below info should still be constructible without panicking.
	log.Debug().Str("key", "value").Msg("suppressed")
}

func TestNewParsesLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			log := New(level, false)
			assert.NotNil(t, log)
			log.Info().Msg("level smoke test")
		})
	}
}

func TestNopDiscardsEvents(t *testing.T) {
	log := NewNop()
	log.Info().
		Str("bucket", "test").
		Int("attempt", 1).
		Int64("count", 2).
		Bool("idempotent", true).
		Dur("latency", time.Millisecond).
		Interface("payload", map[string]any{"a": 1}).
		Msg("discarded")
	log.Warn().Err(assert.AnError).Msgf("discarded %d", 42)
	log.Error().Msg("discarded")
	log.Debug().Msg("discarded")
}

func TestWithFieldsReturnsDerivedLogger(t *testing.T) {
	base := NewNop()
	derived := base.WithFields(map[string]any{"component": "dispatcher"})
	assert.NotNil(t, derived)
	derived.Info().Msg("derived logger works")
}

func TestWithContextNonContextValue(t *testing.T) {
	base := NewNop()
	assert.Equal(t, Logger(base), base.WithContext("not a context"))
}

package httpclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradewire/exkit/config"
)

func testPolicy(maxAttempts int, jitter bool) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    80 * time.Millisecond,
		Multiplier:  2.0,
		Jitter:      jitter,
	}
}

func TestDecideSafetyTable(t *testing.T) {
	tests := []struct {
		name       string
		idempotent bool
		outcome    error
		retry      bool
	}{
		{"non-idempotent transport failure", false, NewTransportError("test", nil), false},
		{"non-idempotent server error", false, NewHTTPError(503, nil), false},
		{"idempotent transport failure", true, NewTransportError("test", nil), true},
		{"idempotent server error", true, NewHTTPError(503, nil), true},
		{"idempotent client error", true, NewHTTPError(400, nil), false},
		{"idempotent rejection", true, NewRejectionError("1", "test", nil), false},
	}

	policy := testPolicy(3, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation("GET", "https://api.example.com/v1/time", "b", tt.idempotent)
			decision := policy.decide(op, tt.outcome, 1, policy.newBackOff())
			assert.Equal(t, tt.retry, decision.Retry)
			if decision.Retry {
				assert.Positive(t, decision.Delay)
			}
		})
	}
}

func TestDecideRespectsAttemptBudget(t *testing.T) {
	policy := testPolicy(3, false)
	op := NewOperation("GET", "https://api.example.com/v1/time", "b", true)
	outcome := NewTransportError("test", nil)
	schedule := policy.newBackOff()

	assert.True(t, policy.decide(op, outcome, 1, schedule).Retry)
	assert.True(t, policy.decide(op, outcome, 2, schedule).Retry)
	assert.False(t, policy.decide(op, outcome, 3, schedule).Retry, "budget of 3 attempts allows no 4th")
}

func TestZeroAndOneMaxAttemptsDisableRetry(t *testing.T) {
	op := NewOperation("GET", "https://api.example.com/v1/time", "b", true)
	outcome := NewTransportError("test", nil)

	for _, max := range []int{0, 1} {
		policy := testPolicy(max, false)
		decision := policy.decide(op, outcome, 1, policy.newBackOff())
		assert.False(t, decision.Retry, "maxAttempts=%d must not retry", max)
	}
}

func TestBackoffMonotonicWithoutJitter(t *testing.T) {
	policy := testPolicy(10, false)
	schedule := policy.newBackOff()

	var prev time.Duration
	for i := 0; i < 8; i++ {
		delay := schedule.NextBackOff()
		assert.GreaterOrEqual(t, delay, prev, "delay %d regressed", i)
		assert.LessOrEqual(t, delay, policy.MaxDelay)
		prev = delay
	}
	// The schedule settles at the ceiling.
	assert.Equal(t, policy.MaxDelay, prev)
}

func TestBackoffFirstDelayIsBaseDelay(t *testing.T) {
	policy := testPolicy(5, false)
	assert.Equal(t, policy.BaseDelay, policy.newBackOff().NextBackOff())
}

func TestBackoffJitterStaysBounded(t *testing.T) {
	policy := testPolicy(10, true)
	schedule := policy.newBackOff()

	for i := 0; i < 20; i++ {
		delay := schedule.NextBackOff()
		assert.Positive(t, delay)
		// Jittered delays stay within the randomization band around the
		// ceiling.
		assert.LessOrEqual(t, delay, time.Duration(float64(policy.MaxDelay)*(1+jitterFactor)))
	}
}

func TestLinearBackoffWithUnitMultiplier(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   20 * time.Millisecond,
		MaxDelay:    time.Second,
		Multiplier:  1.0,
		Jitter:      false,
	}
	schedule := policy.newBackOff()
	for i := 0; i < 4; i++ {
		assert.Equal(t, policy.BaseDelay, schedule.NextBackOff())
	}
}

func TestPolicyFromConfig(t *testing.T) {
	cfg, err := config.LoadBytes(nil)
	require.NoError(t, err)

	policy := PolicyFromConfig(&cfg.Retry)
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, policy.BaseDelay)
	assert.Equal(t, 5*time.Second, policy.MaxDelay)
	assert.Equal(t, 2.0, policy.Multiplier)
	assert.True(t, policy.Jitter)
}

func TestDefaultRetryPolicyMatchesConfigDefaults(t *testing.T) {
	cfg, err := config.LoadBytes(nil)
	require.NoError(t, err)
	assert.Equal(t, PolicyFromConfig(&cfg.Retry), DefaultRetryPolicy())
}

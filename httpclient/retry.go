package httpclient

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tradewire/exkit/config"
)

// jitterFactor is the randomization applied around each computed delay
// when jitter is enabled, to avoid thundering-herd retries across
// callers sharing a bucket.
const jitterFactor = 0.5

// RetryPolicy decides, per failed attempt, whether to retry and after
// what delay. Only idempotent operations with transport-level outcomes
// (TransportFailure, HTTPServerError) are ever retried; everything else
// surfaces on first occurrence.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget, initial attempt included.
	// 0 and 1 both mean a single attempt with no retries; retrying
	// forever is not expressible.
	MaxAttempts int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration
	// Multiplier grows the delay per attempt; 1.0 gives linear
	// (constant) backoff.
	Multiplier float64
	// Jitter randomizes each delay around its computed value.
	Jitter bool
}

// DefaultRetryPolicy mirrors the library's configuration defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// PolicyFromConfig builds a RetryPolicy from the loaded configuration.
func PolicyFromConfig(cfg *config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
		Multiplier:  cfg.BackoffMultiplier,
		Jitter:      cfg.Jitter,
	}
}

// RetryDecision is the outcome of consulting the policy for one failed
// attempt. It is recomputed per attempt and never mutated.
type RetryDecision struct {
	Retry bool
	Delay time.Duration
}

// newBackOff builds the per-dispatch delay schedule. Each dispatch gets
// its own instance because ExponentialBackOff carries mutable state.
func (p RetryPolicy) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	if p.Jitter {
		b.RandomizationFactor = jitterFactor
	}
	// The attempt budget bounds the loop; wall time does not.
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// decide applies the safety table for one failed attempt. attempt is the
// 1-based count of attempts performed so far.
func (p RetryPolicy) decide(op *Operation, outcome error, attempt int, schedule backoff.BackOff) RetryDecision {
	if !op.Idempotent {
		return RetryDecision{}
	}
	if attempt >= p.maxAttempts() {
		return RetryDecision{}
	}
	if !Retryable(outcome) {
		return RetryDecision{}
	}

	delay := schedule.NextBackOff()
	if delay == backoff.Stop {
		return RetryDecision{}
	}
	return RetryDecision{Retry: true, Delay: delay}
}

func (p RetryPolicy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

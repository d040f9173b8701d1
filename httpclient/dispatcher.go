package httpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/tradewire/exkit/clock"
	"github.com/tradewire/exkit/logger"
	"github.com/tradewire/exkit/ratelimit"
	"github.com/tradewire/exkit/trace"
)

// Dispatcher orchestrates the full lifecycle of one Operation: admission,
// transport call, outcome classification, and the retry loop. It holds no
// per-operation state, so a single Dispatcher is safe for concurrent use.
type Dispatcher struct {
	transport Transport
	limiter   Limiter
	policy    RetryPolicy
	clk       clock.Clock
	log       logger.Logger
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLimiter sets the admission controller. Defaults to ratelimit.Nop,
// which grants every permit immediately.
func WithLimiter(l Limiter) DispatcherOption {
	return func(d *Dispatcher) { d.limiter = l }
}

// WithRetryPolicy sets the retry policy. Defaults to DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) DispatcherOption {
	return func(d *Dispatcher) { d.policy = p }
}

// WithLogger sets the logger for per-attempt observability events.
// Defaults to a no-op logger; the core never configures log output.
func WithLogger(log logger.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = log }
}

// WithDispatchClock replaces the time source used for backoff sleeps,
// primarily for tests.
func WithDispatchClock(clk clock.Clock) DispatcherOption {
	return func(d *Dispatcher) { d.clk = clk }
}

// NewDispatcher creates a Dispatcher around the given transport.
func NewDispatcher(transport Transport, opts ...DispatcherOption) (*Dispatcher, error) {
	if transport == nil {
		return nil, NewValidationError("transport", "must not be nil")
	}

	d := &Dispatcher{
		transport: transport,
		limiter:   ratelimit.Nop{},
		policy:    DefaultRetryPolicy(),
		clk:       clock.System,
		log:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch executes op until it produces a terminal result: a successful
// Response, or an error. Each attempt acquires a fresh rate-limit permit
// for op.Bucket, including retries. Failed attempts are classified and
// the retry policy consulted; outcomes it declines to retry surface
// immediately inside a DispatchError, and an exhausted budget surfaces
// the last outcome. Cancellation is honored during permit waits and
// backoff sleeps.
func (d *Dispatcher) Dispatch(ctx context.Context, op *Operation) (*Response, error) {
	if err := op.validate(); err != nil {
		return nil, err
	}

	requestID := trace.EnsureRequestID(ctx)
	ctx = trace.WithRequestID(ctx, requestID)
	log := d.log.WithFields(map[string]any{
		"request_id": requestID,
		"bucket":     op.Bucket,
	})

	start := d.clk.Now()
	schedule := d.policy.newBackOff()
	var history []error

	for attempt := 1; ; attempt++ {
		if err := d.limiter.Acquire(ctx, op.Bucket); err != nil {
			return nil, fmt.Errorf("aborted while waiting for rate limit permit: %w", err)
		}

		attemptStart := d.clk.Now()
		raw, err := d.transport.PerformRequest(ctx, op.Method, op.URL, op.Headers, op.Body)
		latency := d.clk.Now().Sub(attemptStart)

		outcome := Classify(raw, err, op.Check)
		if outcome == nil {
			log.Debug().
				Int("attempt", attempt).
				Int("status", raw.StatusCode).
				Dur("latency", latency).
				Msg("request succeeded")
			return &Response{
				StatusCode: raw.StatusCode,
				Body:       raw.Body,
				Headers:    raw.Headers,
				Stats: Stats{
					ElapsedTime: d.clk.Now().Sub(start),
					Attempts:    attempt,
				},
			}, nil
		}

		history = append(history, outcome)
		decision := d.policy.decide(op, outcome, attempt, schedule)
		log.Warn().
			Err(outcome).
			Int("attempt", attempt).
			Str("outcome", classification(outcome).String()).
			Dur("latency", latency).
			Bool("will_retry", decision.Retry).
			Msg("request attempt failed")

		if !decision.Retry {
			return nil, terminalError(op, outcome, attempt, history)
		}

		if err := d.sleep(ctx, decision.Delay); err != nil {
			return nil, fmt.Errorf("aborted during retry backoff: %w", err)
		}
	}
}

// terminalError wraps the last outcome so callers can tell an exhausted
// retry budget from a refusal to retry. The outcome itself is surfaced
// unchanged via Unwrap.
func terminalError(op *Operation, outcome error, attempts int, history []error) error {
	reason := ReasonRefused
	if op.Idempotent && Retryable(outcome) {
		reason = ReasonExhausted
	}
	return &DispatchError{
		Reason:   reason,
		Attempts: attempts,
		Cause:    outcome.(ClientError),
		History:  history,
	}
}

func classification(err error) ErrorType {
	if cerr, ok := err.(ClientError); ok {
		return cerr.Type()
	}
	return TransportFailure
}

func (d *Dispatcher) sleep(ctx context.Context, delay time.Duration) error {
	timer := d.clk.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C():
		return nil
	}
}

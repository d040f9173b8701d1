// Package ratelimit gates outbound API calls per named bucket so that no
// more than the configured number of permits is granted within a bucket's
// time window. Buckets are independent: acquiring in one never blocks
// another.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tradewire/exkit/clock"
	"github.com/tradewire/exkit/config"
)

// Configuration errors, reported eagerly at registry or bucket
// construction time, never during Acquire.
var (
	ErrInvalidLimit     = errors.New("rate limit must be positive")
	ErrInvalidWindow    = errors.New("rate limit window must be positive")
	ErrInvalidAlgorithm = errors.New("unknown rate limit algorithm")
)

// Algorithm selects how a bucket accounts for permits.
type Algorithm int

const (
	// SlidingWindow enforces the limit over every sliding window of the
	// configured length: the n-th permit is granted only once a full
	// window has elapsed since permit n-limit. It is the default because
	// it matches how exchanges meter hard request caps.
	SlidingWindow Algorithm = iota
	// TokenBucket holds `limit` tokens refilled continuously at
	// limit/window. It tolerates bursts up to the full limit after idle
	// periods, which can briefly exceed the limit across a window
	// boundary. Use it for soft, throughput-oriented limits.
	TokenBucket
)

// Registry owns the mutable per-bucket admission state. It is created
// once by the hosting application and shared by every dispatcher; there
// is no implicit process-wide instance.
type Registry struct {
	mu       sync.RWMutex
	buckets  map[string]bucket
	defaults settings
	clk      clock.Clock
}

type settings struct {
	limit     int
	window    time.Duration
	algorithm Algorithm
}

// Option customizes a Registry.
type Option func(*Registry)

// WithClock replaces the time source, primarily for tests.
func WithClock(clk clock.Clock) Option {
	return func(r *Registry) { r.clk = clk }
}

// WithDefaultAlgorithm sets the algorithm used for buckets created
// lazily or configured without an explicit algorithm.
func WithDefaultAlgorithm(a Algorithm) Option {
	return func(r *Registry) { r.defaults.algorithm = a }
}

// NewRegistry creates a bucket registry. Buckets that were never
// configured explicitly are created lazily on first use with
// defaultLimit permits per defaultWindow.
func NewRegistry(defaultLimit int, defaultWindow time.Duration, opts ...Option) (*Registry, error) {
	if err := validateBucket(defaultLimit, defaultWindow); err != nil {
		return nil, err
	}

	r := &Registry{
		buckets: make(map[string]bucket),
		defaults: settings{
			limit:     defaultLimit,
			window:    defaultWindow,
			algorithm: SlidingWindow,
		},
		clk: clock.System,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// NewRegistryFromConfig builds a registry from the loaded configuration,
// pre-configuring every bucket listed under ratelimit.buckets.
func NewRegistryFromConfig(cfg *config.RateLimitConfig, opts ...Option) (*Registry, error) {
	r, err := NewRegistry(cfg.DefaultLimit, cfg.DefaultWindow, opts...)
	if err != nil {
		return nil, err
	}

	for key, bc := range cfg.Buckets {
		algo, err := parseAlgorithm(bc.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("bucket %q: %w", key, err)
		}
		if err := r.Configure(key, bc.Limit, bc.Window, WithAlgorithm(algo)); err != nil {
			return nil, fmt.Errorf("bucket %q: %w", key, err)
		}
	}
	return r, nil
}

func parseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "", config.AlgorithmSliding:
		return SlidingWindow, nil
	case config.AlgorithmToken:
		return TokenBucket, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAlgorithm, name)
	}
}

// BucketOption customizes a single configured bucket.
type BucketOption func(*settings)

// WithAlgorithm overrides the registry default algorithm for one bucket.
func WithAlgorithm(a Algorithm) BucketOption {
	return func(s *settings) { s.algorithm = a }
}

// Configure creates or replaces the bucket for key with the given limit
// and window. Invalid parameters fail here, never inside Acquire.
// Re-invoking Configure for an existing key resets its state.
func (r *Registry) Configure(key string, limit int, window time.Duration, opts ...BucketOption) error {
	if err := validateBucket(limit, window); err != nil {
		return fmt.Errorf("bucket %q: %w", key, err)
	}

	s := settings{limit: limit, window: window, algorithm: r.defaults.algorithm}
	for _, opt := range opts {
		opt(&s)
	}

	r.mu.Lock()
	r.buckets[key] = newBucket(s, r.clk)
	r.mu.Unlock()
	return nil
}

// Acquire blocks until a permit is available in the bucket for key, or
// until ctx is cancelled. It never rejects outright. A cancelled wait
// consumes no permit.
func (r *Registry) Acquire(ctx context.Context, key string) error {
	return r.bucket(key).acquire(ctx)
}

// TryAcquire consumes a permit if one is immediately available and
// reports whether it did. It never blocks.
func (r *Registry) TryAcquire(key string) bool {
	return r.bucket(key).tryAcquire()
}

func (r *Registry) bucket(key string) bucket {
	r.mu.RLock()
	b, ok := r.buckets[key]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buckets[key]; ok {
		return b
	}
	b = newBucket(r.defaults, r.clk)
	r.buckets[key] = b
	return b
}

func validateBucket(limit int, window time.Duration) error {
	if limit <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if window <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidWindow, window)
	}
	return nil
}

// Nop is the escape hatch for latency-sensitive paths: every permit is
// granted immediately and no accounting is kept.
type Nop struct{}

// Acquire grants immediately unless ctx is already cancelled.
func (Nop) Acquire(ctx context.Context, _ string) error { return ctx.Err() }

// TryAcquire always grants.
func (Nop) TryAcquire(string) bool { return true }

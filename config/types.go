package config

import "time"

// Bucket algorithm names accepted by BucketConfig.Algorithm.
const (
	AlgorithmSliding = "sliding"
	AlgorithmToken   = "token"
)

// Config is the root configuration for the client core. Values are loaded
// once at initialization; invalid values fail fast at Load, never during
// dispatch.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Retry     RetryConfig     `koanf:"retry"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
}

// LogConfig controls the library's structured log output.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Pretty bool   `koanf:"pretty"`
}

// RetryConfig controls the retry policy applied to idempotent operations.
// MaxAttempts counts total attempts, not re-attempts; 0 or 1 disables
// retrying while still performing the initial attempt.
type RetryConfig struct {
	MaxAttempts       int           `koanf:"maxattempts" validate:"gte=0"`
	BaseDelay         time.Duration `koanf:"basedelay" validate:"gt=0"`
	MaxDelay          time.Duration `koanf:"maxdelay" validate:"gtefield=BaseDelay"`
	BackoffMultiplier float64       `koanf:"backoffmultiplier" validate:"gte=1"`
	Jitter            bool          `koanf:"jitter"`
}

// RateLimitConfig controls bucket admission. Buckets not listed explicitly
// are created lazily with the default limit and window on first use.
type RateLimitConfig struct {
	DefaultLimit  int                     `koanf:"defaultlimit" validate:"gt=0"`
	DefaultWindow time.Duration           `koanf:"defaultwindow" validate:"gt=0"`
	Buckets       map[string]BucketConfig `koanf:"buckets" validate:"dive"`
}

// BucketConfig overrides admission control for a single named bucket.
type BucketConfig struct {
	Limit  int           `koanf:"limit" validate:"gt=0"`
	Window time.Duration `koanf:"window" validate:"gt=0"`
	// Algorithm selects the admission algorithm: "sliding" enforces the
	// limit over every sliding window, "token" allows bursts with
	// continuous refill. Empty means sliding.
	Algorithm string `koanf:"algorithm" validate:"omitempty,oneof=sliding token"`
}

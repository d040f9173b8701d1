// Package config loads and validates the client core configuration from
// defaults, an optional YAML file, and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultFile is the YAML file consulted by Load when present.
	DefaultFile = "exkit.yaml"
	// EnvPrefix namespaces the environment variables read by Load,
	// e.g. EXKIT_RETRY_MAXATTEMPTS overrides retry.maxattempts.
	EnvPrefix = "EXKIT_"
)

var validate = validator.New()

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. YAML configuration file (DefaultFile, optional)
// 3. Default values (lowest priority)
//
// Invalid values are rejected here, before any dispatcher or bucket is
// built, so misconfiguration never surfaces mid-dispatch.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// The YAML file is optional; only a present-but-broken file is fatal.
	if _, err := os.Stat(DefaultFile); err == nil {
		if err := k.Load(file.Provider(DefaultFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", DefaultFile, err)
		}
	}

	if err := loadEnv(k); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return unmarshal(k)
}

// LoadBytes builds a Config from raw YAML content layered over the
// defaults. It is intended for embedded configuration and tests.
func LoadBytes(content []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config bytes: %w", err)
	}

	return unmarshal(k)
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"log.level":  "info",
		"log.pretty": false,

		// Conservative by default, tunable per bucket for
		// latency-sensitive paths.
		"retry.maxattempts":       3,
		"retry.basedelay":         "250ms",
		"retry.maxdelay":          "5s",
		"retry.backoffmultiplier": 2.0,
		"retry.jitter":            true,

		"ratelimit.defaultlimit":  2,
		"ratelimit.defaultwindow": "1s",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

func loadEnv(k *koanf.Koanf) error {
	return k.Load(envprovider.Provider(EnvPrefix, ".", func(s string) string {
		// Convert EXKIT_RETRY_MAXATTEMPTS to retry.maxattempts for koanf
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil)
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks a Config against the struct-level validation rules and
// returns a ConfigError describing the first violation.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
		fe := verrs[0]
		return NewInvalidFieldError(fieldPath(fe.Namespace()), fmt.Sprintf("failed %q validation", fe.Tag()))
	}

	return fmt.Errorf("invalid configuration: %w", err)
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	*target = verrs
	return true
}

// fieldPath turns a validator namespace like "Config.Retry.BaseDelay"
// into the koanf-style path "retry.basedelay".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}

package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// CacheConfig holds binary cache publication settings.
type CacheConfig struct {
	// Endpoint is the base URL of the remote binary cache.
	Endpoint string `yaml:"endpoint"`

	// TokenEnv names the environment variable holding the bearer token.
	// An unset variable means "skip publication", never an error.
	TokenEnv string `yaml:"token_env"`

	// SelfTarget is the build reference of the publishing tool itself.
	// Its closure is published alongside every target so downstream
	// jobs can fetch the tool instead of rebuilding it.
	SelfTarget string `yaml:"self_target"`

	// MaxAttempts bounds retries for transient upload failures.
	MaxAttempts int `yaml:"max_attempts"`

	// Timeout bounds each network operation (authenticate, upload).
	Timeout Duration `yaml:"timeout"`

	// Parallel bounds concurrent path uploads.
	Parallel int `yaml:"parallel"`
}

// Duration wraps time.Duration with YAML support for strings like "90s".
type Duration time.Duration

// UnmarshalYAML accepts either an integer (seconds) or a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("timeout: expected scalar, got YAML kind %d", value.Kind)
	}

	var secs int
	if err := value.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("timeout: %q is not a duration", value.Value)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// DefaultCacheConfig returns sensible defaults for cache publication.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TokenEnv:    "CACHE_AUTH_TOKEN",
		SelfTarget:  ".#cachefreight",
		MaxAttempts: 5,
		Timeout:     Duration(2 * time.Minute),
		Parallel:    8,
	}
}

package config

import (
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = ".cachefreight.yml"

// Config is the top-level CacheFreight configuration.
type Config struct {
	Cache  CacheConfig  `yaml:"cache"`
	Docker DockerConfig `yaml:"docker"`
	Policy PolicyConfig `yaml:"policy"`
	Guard  GuardConfig  `yaml:"guard"`
	Badge  BadgeConfig  `yaml:"badge"`
}

// Load reads configuration from a YAML file.
// If path is empty, it tries the default file.
// Returns sensible defaults if the file doesn't exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaults(), nil
		}
		return nil, err
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Cache:  DefaultCacheConfig(),
		Docker: DefaultDockerConfig(),
		Policy: DefaultPolicyConfig(),
		Guard:  DefaultGuardConfig(),
		Badge:  DefaultBadgeConfig(),
	}
}

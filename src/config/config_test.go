package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	assert.Equal(t, "CACHE_AUTH_TOKEN", cfg.Cache.TokenEnv)
	assert.Equal(t, []string{"amd64", "arm64"}, cfg.Docker.Architectures)
	assert.Equal(t, 2*time.Minute, cfg.Cache.Timeout.Std())
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".cachefreight.yml")
	data := `
cache:
  endpoint: https://cache.example.com
  token_env: MY_TOKEN
  timeout: 30s
docker:
  architectures: [amd64, arm64]
  registries:
    - url: docker.io
      path: acme/app
      credentials: DOCKERHUB
    - url: registry.gitlab.com
      path: acme/app
      credentials: GITLAB
policy:
  release_tags: ["^v\\d+\\.\\d+\\.\\d+$"]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://cache.example.com", cfg.Cache.Endpoint)
	assert.Equal(t, "MY_TOKEN", cfg.Cache.TokenEnv)
	assert.Equal(t, 30*time.Second, cfg.Cache.Timeout.Std())
	require.Len(t, cfg.Docker.Registries, 2)
	assert.Equal(t, "DOCKERHUB", cfg.Docker.Registries[0].Credentials)

	// Defaults survive a partial file.
	assert.Equal(t, 5, cfg.Cache.MaxAttempts)
}

func TestDurationAcceptsSeconds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  timeout: 90\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Cache.Timeout.Std())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "bad endpoint",
			mutate:  func(cfg *Config) { cfg.Cache.Endpoint = "::not-a-url" },
			wantErr: "cache.endpoint",
		},
		{
			name:    "empty architectures",
			mutate:  func(cfg *Config) { cfg.Docker.Architectures = nil },
			wantErr: "docker.architectures",
		},
		{
			name: "duplicate architecture",
			mutate: func(cfg *Config) {
				cfg.Docker.Architectures = []string{"amd64", "amd64"}
			},
			wantErr: "duplicate entry",
		},
		{
			name:    "template without arch",
			mutate:  func(cfg *Config) { cfg.Docker.ArchiveTemplate = "app.tar.gz" },
			wantErr: "must contain {arch}",
		},
		{
			name: "registry missing path",
			mutate: func(cfg *Config) {
				cfg.Docker.Registries = []RegistryConfig{{URL: "docker.io", Credentials: "HUB"}}
			},
			wantErr: "path is required",
		},
		{
			name:    "bad release pattern",
			mutate:  func(cfg *Config) { cfg.Policy.ReleaseTags = []string{"^v[\\d+$"} },
			wantErr: "policy.release_tags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			_, err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateWarnsOnMissingCredentials(t *testing.T) {
	cfg := defaults()
	cfg.Docker.Registries = []RegistryConfig{{URL: "docker.io", Path: "acme/app"}}

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "unauthenticated")
}

package config

// DockerConfig holds container image and registry settings for the
// multi-arch manifest publish step.
type DockerConfig struct {
	// ArchiveTemplate names the per-architecture image archive each
	// build job leaves behind. Supported placeholders: {name}, {arch}.
	// This naming convention is the only hand-off between the build
	// jobs and the manifest publisher.
	ArchiveTemplate string `yaml:"archive_template"`

	// Architectures is the fixed supported set. A manifest list must
	// contain exactly one image per entry or it is never pushed.
	Architectures []string `yaml:"architectures"`

	// Registries are the push targets. Each receives the same
	// per-architecture tags and manifest lists, with isolated
	// credentials.
	Registries []RegistryConfig `yaml:"registries"`
}

// RegistryConfig defines a registry push target.
type RegistryConfig struct {
	URL  string `yaml:"url"`
	Path string `yaml:"path"`

	// Credentials is the env var prefix for auth
	// (e.g., "DOCKERHUB" → DOCKERHUB_USER / DOCKERHUB_PASS).
	Credentials string `yaml:"credentials"`
}

// DefaultDockerConfig returns sensible defaults for manifest publishing.
func DefaultDockerConfig() DockerConfig {
	return DockerConfig{
		ArchiveTemplate: "{name}-{arch}.docker.tar.gz",
		Architectures:   []string{"amd64", "arm64"},
	}
}

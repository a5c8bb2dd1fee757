package config

// PolicyConfig defines patterns classifying the triggering reference.
type PolicyConfig struct {
	// ReleaseTags are patterns a git tag must match to count as a
	// release. Releases additionally push the `latest` manifest list.
	// Uses standard pattern syntax: regex, literal, or !negated.
	// Empty = semver tags (vN.N.N or N.N.N).
	ReleaseTags []string `yaml:"release_tags"`
}

// DefaultPolicyConfig returns sensible defaults for trigger classification.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{}
}

// GuardConfig controls the pre-publish secret scan.
type GuardConfig struct {
	// Enabled runs a gitleaks scan over tracked files before the first
	// upload to the shared cache. Critical findings abort publication.
	Enabled bool `yaml:"enabled"`
}

// DefaultGuardConfig returns the guard defaults (off).
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{}
}

// BadgeConfig controls the pipeline status badge SVG.
type BadgeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`  // output file (default: .badges/cache.svg)
	Label   string `yaml:"label"` // left-side text (default: cache)
}

// DefaultBadgeConfig returns the badge defaults (off).
func DefaultBadgeConfig() BadgeConfig {
	return BadgeConfig{
		Path:  ".badges/cache.svg",
		Label: "cache",
	}
}

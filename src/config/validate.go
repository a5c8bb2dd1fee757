package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var envNameRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Validate checks structural invariants of a loaded Config.
// Returns warnings (soft issues) and a hard error if the config is invalid.
func Validate(cfg *Config) (warnings []string, err error) {
	var errs []string

	// ── Cache ─────────────────────────────────────────────────────────────

	if cfg.Cache.Endpoint != "" {
		u, perr := url.Parse(cfg.Cache.Endpoint)
		if perr != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("cache.endpoint: %q is not a valid URL", cfg.Cache.Endpoint))
		}
	}
	if cfg.Cache.TokenEnv != "" && !envNameRe.MatchString(cfg.Cache.TokenEnv) {
		errs = append(errs, fmt.Sprintf("cache.token_env: %q is not a valid environment variable name", cfg.Cache.TokenEnv))
	}
	if cfg.Cache.MaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("cache.max_attempts: must be at least 1, got %d", cfg.Cache.MaxAttempts))
	}
	if cfg.Cache.Parallel < 1 {
		errs = append(errs, fmt.Sprintf("cache.parallel: must be at least 1, got %d", cfg.Cache.Parallel))
	}

	// ── Docker ────────────────────────────────────────────────────────────

	if len(cfg.Docker.Architectures) == 0 {
		errs = append(errs, "docker.architectures: must not be empty")
	}
	seen := make(map[string]bool)
	for _, arch := range cfg.Docker.Architectures {
		if seen[arch] {
			errs = append(errs, fmt.Sprintf("docker.architectures: duplicate entry %q", arch))
		}
		seen[arch] = true
	}
	if !strings.Contains(cfg.Docker.ArchiveTemplate, "{arch}") {
		errs = append(errs, fmt.Sprintf("docker.archive_template: %q must contain {arch}", cfg.Docker.ArchiveTemplate))
	}

	for i, reg := range cfg.Docker.Registries {
		rpath := fmt.Sprintf("docker.registries[%d]", i)
		if reg.URL == "" {
			errs = append(errs, fmt.Sprintf("%s: url is required", rpath))
		}
		if reg.Path == "" {
			errs = append(errs, fmt.Sprintf("%s: path is required", rpath))
		}
		if reg.Credentials == "" {
			warnings = append(warnings, fmt.Sprintf("%s: no credentials prefix, push will be unauthenticated", rpath))
		} else if !envNameRe.MatchString(reg.Credentials) {
			errs = append(errs, fmt.Sprintf("%s: credentials prefix %q is not a valid environment variable prefix", rpath, reg.Credentials))
		}
	}

	// ── Policy ────────────────────────────────────────────────────────────

	for _, pat := range cfg.Policy.ReleaseTags {
		expr := strings.TrimPrefix(pat, "!")
		if _, rerr := regexp.Compile(expr); rerr != nil {
			errs = append(errs, fmt.Sprintf("policy.release_tags: %q is not a valid pattern: %v", pat, rerr))
		}
	}

	if len(errs) > 0 {
		return warnings, fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return warnings, nil
}

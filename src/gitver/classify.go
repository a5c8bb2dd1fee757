package gitver

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// IsRelease reports whether the trigger reference is a release tag.
// Branch builds are never releases. With no configured patterns, a
// release is a stable semver tag (vN.N.N or N.N.N, no prerelease).
// Patterns use standard syntax: regex, literal, or !negated — a tag is
// a release if it matches any positive pattern and no negated one.
func (r *RefInfo) IsRelease(patterns []string) bool {
	if r.Tag == "" {
		return false
	}
	if len(patterns) == 0 {
		return isStableSemver(r.Tag)
	}
	return matchPatterns(r.Tag, patterns)
}

// isStableSemver reports whether tag parses as semver with no
// prerelease suffix.
func isStableSemver(tag string) bool {
	v, err := semver.StrictNewVersion(strings.TrimPrefix(tag, "v"))
	if err != nil {
		return false
	}
	return v.Prerelease() == ""
}

// matchPatterns applies regex/literal/!negated patterns to a name.
func matchPatterns(name string, patterns []string) bool {
	matched := false
	for _, pat := range patterns {
		negated := strings.HasPrefix(pat, "!")
		expr := strings.TrimPrefix(pat, "!")

		re, err := regexp.Compile(expr)
		var hit bool
		if err != nil {
			hit = name == expr // fall back to literal comparison
		} else {
			hit = re.MatchString(name)
		}

		if negated && hit {
			return false
		}
		if !negated && hit {
			matched = true
		}
	}
	return matched
}

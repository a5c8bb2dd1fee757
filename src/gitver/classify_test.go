package gitver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsReleaseDefaultsToStableSemver(t *testing.T) {
	tests := []struct {
		tag  string
		want bool
	}{
		{"v1.2.3", true},
		{"1.2.3", true},
		{"v0.1.0", true},
		{"v1.2.3-rc.1", false},
		{"v1.2.3-alpha", false},
		{"nightly", false},
		{"v1.2", false},
	}

	for _, tt := range tests {
		ref := &RefInfo{SHA: "abc12345", Tag: tt.tag}
		assert.Equal(t, tt.want, ref.IsRelease(nil), "tag %q", tt.tag)
	}
}

func TestIsReleaseBranchBuildsNever(t *testing.T) {
	ref := &RefInfo{SHA: "abc12345", Branch: "main"}
	assert.False(t, ref.IsRelease(nil))
	assert.False(t, ref.IsRelease([]string{".*"}))
}

func TestIsReleasePatterns(t *testing.T) {
	patterns := []string{`^v\d+\.\d+\.\d+`, `!-rc`}

	assert.True(t, (&RefInfo{Tag: "v2.0.0"}).IsRelease(patterns))
	assert.False(t, (&RefInfo{Tag: "v2.0.0-rc.1"}).IsRelease(patterns))
	assert.False(t, (&RefInfo{Tag: "release-2"}).IsRelease(patterns))
}

func TestRefTag(t *testing.T) {
	assert.Equal(t, "v1.2.3", (&RefInfo{Tag: "v1.2.3", Branch: "main"}).RefTag())
	assert.Equal(t, "main", (&RefInfo{Branch: "main"}).RefTag())
	assert.Equal(t, "feature-cache-retry", (&RefInfo{Branch: "feature/cache-retry"}).RefTag())
}

func TestCommitTag(t *testing.T) {
	assert.Equal(t, "abc12345", (&RefInfo{SHA: "abc12345"}).CommitTag())
}

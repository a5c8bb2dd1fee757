// Package gitver resolves the triggering git reference for a pipeline
// run: commit SHA, branch or tag name, and whether the trigger counts
// as a release. CI environment variables win; a local repository read
// through go-git is the fallback so the same binary behaves identically
// on a laptop.
package gitver

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// RefInfo holds the resolved trigger reference.
type RefInfo struct {
	SHA    string // short commit SHA (8 chars)
	Branch string // branch name, "" for tag builds
	Tag    string // exact tag at HEAD, "" for branch builds
}

// CommitTag returns the image tag derived from the commit.
func (r *RefInfo) CommitTag() string {
	return r.SHA
}

// RefTag returns the image tag derived from the branch or tag name.
func (r *RefInfo) RefTag() string {
	if r.Tag != "" {
		return sanitizeTag(r.Tag)
	}
	return sanitizeTag(r.Branch)
}

// Detect resolves the trigger reference. GitLab CI variables take
// priority; otherwise the repository at rootDir is opened directly.
func Detect(rootDir string) (*RefInfo, error) {
	if info := fromEnv(); info != nil {
		return info, nil
	}
	return fromRepo(rootDir)
}

// fromEnv builds a RefInfo from CI variables, or nil outside CI.
func fromEnv() *RefInfo {
	sha := os.Getenv("CI_COMMIT_SHORT_SHA")
	if sha == "" {
		if full := os.Getenv("CI_COMMIT_SHA"); len(full) >= 8 {
			sha = full[:8]
		}
	}
	if sha == "" {
		return nil
	}
	return &RefInfo{
		SHA:    sha,
		Branch: os.Getenv("CI_COMMIT_BRANCH"),
		Tag:    os.Getenv("CI_COMMIT_TAG"),
	}
}

// fromRepo reads HEAD, the current branch, and any exact tag from the
// repository at rootDir.
func fromRepo(rootDir string) (*RefInfo, error) {
	repo, err := git.PlainOpen(rootDir)
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", rootDir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	info := &RefInfo{SHA: head.Hash().String()[:8]}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	// An exact tag at HEAD makes this a tag build.
	tags, err := repo.Tags()
	if err != nil {
		return info, nil
	}
	_ = tags.ForEach(func(ref *plumbing.Reference) error {
		hash := ref.Hash()
		if obj, terr := repo.TagObject(hash); terr == nil {
			hash = obj.Target // annotated tag
		}
		if hash == head.Hash() {
			info.Tag = ref.Name().Short()
		}
		return nil
	})

	return info, nil
}

// sanitizeTag replaces characters not allowed in image tags.
func sanitizeTag(s string) string {
	r := strings.NewReplacer(
		"/", "-",
		" ", "-",
	)
	return r.Replace(s)
}

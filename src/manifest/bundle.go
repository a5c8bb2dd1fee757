package manifest

import (
	"fmt"
	"strings"
)

// Kind classifies what a build job produced.
type Kind string

const (
	KindBinary  Kind = "binary"
	KindImage   Kind = "container-image"
	KindPackage Kind = "package"
)

// Bundle is one per-architecture artifact handed off from a build job
// under the shared archive-naming convention. The publisher treats the
// file as read-only input.
type Bundle struct {
	Architecture string
	Kind         Kind
	Path         string
}

// Tags is the set of names a publish run attaches. Latest is true only
// when the triggering reference is classified as a release tag.
type Tags struct {
	Commit string
	Ref    string
	Latest bool
}

// LoadError means an architecture archive was present but could not be
// loaded into the container engine. Fatal: a corrupt input can never
// become part of a manifest.
type LoadError struct {
	Archive string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Archive, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ManifestError means the architecture set is incomplete. No manifest
// list is ever pushed with a missing entry.
type ManifestError struct {
	Missing []string
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest incomplete: missing architecture(s) %s", strings.Join(e.Missing, ", "))
}

// RegistryPushError is a failed push to one registry. Isolated: sibling
// registries continue, but the overall outcome is failed.
type RegistryPushError struct {
	Registry string
	Ref      string
	Err      error
}

func (e *RegistryPushError) Error() string {
	return fmt.Sprintf("pushing %s to %s: %v", e.Ref, e.Registry, e.Err)
}

func (e *RegistryPushError) Unwrap() error { return e.Err }

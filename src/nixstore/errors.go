package nixstore

import "fmt"

// ResolutionError means the build system could not realize a target
// reference: missing input, genuine build failure, or an invalid
// reference. Never retried past the transient-error bound.
type ResolutionError struct {
	Ref    string
	Stderr string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("resolving %s: %v: %s", e.Ref, e.Err, lastLine(e.Stderr))
	}
	return fmt.Sprintf("resolving %s: %v", e.Ref, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

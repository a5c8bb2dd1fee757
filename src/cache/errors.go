package cache

import "fmt"

// AuthError means the credential was present but rejected, or the cache
// endpoint could not be reached. Fatal: a present credential is a
// promise that publication must work.
type AuthError struct {
	Endpoint string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authenticating against %s: %v", e.Endpoint, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// PublishError is a failed upload of one closure path. Retryable faults
// (timeouts, 5xx) have already been retried up to the bound by the time
// this surfaces; non-retryable ones (permission denied, quota exceeded)
// propagate immediately.
type PublishError struct {
	Path      string
	Retryable bool
	Err       error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publishing %s: %v", e.Path, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

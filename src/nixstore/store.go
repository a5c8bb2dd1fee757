// Package nixstore wraps the content-addressed build system CLI. The
// build system itself is treated as an opaque oracle: CacheFreight asks
// it to realize targets and expand closures, it never re-implements
// dependency resolution.
package nixstore

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// BuildResult is the outcome of a successful realization.
type BuildResult struct {
	OutputPaths []string // store paths of the built outputs
	RecipePaths []string // store paths of the build recipes (.drv)
}

// runner executes a store command and returns raw stdout plus stderr
// text. Swapped out in tests.
type runner func(ctx context.Context, name string, args ...string) (stdout []byte, stderr string, err error)

// Store wraps the nix and nix-store commands.
type Store struct {
	// MaxAttempts bounds realization retries for transient environment
	// errors. Genuine build failures are never retried.
	MaxAttempts int

	// Backoff is the base delay between realization attempts.
	Backoff time.Duration

	run runner
}

// NewStore creates a store wrapper with default execution settings.
func NewStore() *Store {
	return &Store{
		MaxAttempts: 3,
		Backoff:     2 * time.Second,
		run:         execRun,
	}
}

// transientRe matches environment faults worth one more attempt.
// Anything else from a failed realization is a real build error.
var transientRe = regexp.MustCompile(`(?i)resource temporarily unavailable|unexpected end-of-file|connection reset|timed? ?out`)

// Realize builds the target reference and reports its output and
// recipe paths. Extra build options are forwarded verbatim.
func (s *Store) Realize(ctx context.Context, ref string, buildOpts []string) (*BuildResult, error) {
	args := append([]string{"build", ref, "--print-out-paths", "--no-link"}, buildOpts...)

	var stdout []byte
	var stderr string
	var err error
	for attempt := 1; ; attempt++ {
		stdout, stderr, err = s.run(ctx, "nix", args...)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt >= s.MaxAttempts || !transientRe.MatchString(stderr) {
			return nil, &ResolutionError{Ref: ref, Stderr: stderr, Err: err}
		}
		select {
		case <-time.After(s.Backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	outputs := splitLines(stdout)
	if len(outputs) == 0 {
		return nil, &ResolutionError{Ref: ref, Stderr: stderr, Err: fmt.Errorf("build produced no output paths")}
	}

	drvOut, drvErr, err := s.run(ctx, "nix", "path-info", "--derivation", ref)
	if err != nil {
		return nil, &ResolutionError{Ref: ref, Stderr: drvErr, Err: err}
	}
	recipes := splitLines(drvOut)
	if len(recipes) == 0 {
		return nil, &ResolutionError{Ref: ref, Err: fmt.Errorf("no derivation paths for reference")}
	}

	return &BuildResult{OutputPaths: outputs, RecipePaths: recipes}, nil
}

// Export serializes one store path as a NAR archive.
func (s *Store) Export(ctx context.Context, path string) ([]byte, error) {
	out, stderr, err := s.run(ctx, "nix-store", "--dump", path)
	if err != nil {
		return nil, fmt.Errorf("exporting %s: %w: %s", path, err, lastLine(stderr))
	}
	return out, nil
}

// execRun runs a command via exec, capturing stdout raw and stderr as text.
func execRun(ctx context.Context, name string, args ...string) ([]byte, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.String(), err
}

// splitLines breaks command output into trimmed non-empty lines.
func splitLines(out []byte) []string {
	var lines []string
	for _, l := range strings.Split(string(out), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// lastLine returns the final non-empty line of command output, which is
// where the store CLI puts its actual error message.
func lastLine(s string) string {
	lines := splitLines([]byte(s))
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

package nixstore

import (
	"context"
	"fmt"
	"sort"
)

// Closure is the transitive dependency set of a seed set of store
// paths: sorted, deduplicated, and always a superset of its seeds.
type Closure []string

// Closure expands the seed paths over the requires relation. With
// includeRecipes, recipe closures also pull in their outputs, covering
// build-time and run-time dependencies together. Pure with respect to
// the current store contents: repeated calls return the same result.
func (s *Store) Closure(ctx context.Context, seeds []string, includeRecipes bool) (Closure, error) {
	if len(seeds) == 0 {
		return nil, nil
	}

	args := []string{"--query", "--requisites"}
	if includeRecipes {
		args = append(args, "--include-outputs")
	}
	args = append(args, seeds...)

	out, stderr, err := s.run(ctx, "nix-store", args...)
	if err != nil {
		return nil, fmt.Errorf("expanding closure: %w: %s", err, lastLine(stderr))
	}

	set := make(map[string]bool, len(seeds))
	for _, p := range seeds {
		set[p] = true
	}
	for _, p := range splitLines(out) {
		set[p] = true
	}

	closure := make(Closure, 0, len(set))
	for p := range set {
		closure = append(closure, p)
	}
	sort.Strings(closure)
	return closure, nil
}

// Union merges closures into one sorted, deduplicated closure.
func Union(closures ...Closure) Closure {
	set := make(map[string]bool)
	for _, c := range closures {
		for _, p := range c {
			set[p] = true
		}
	}
	merged := make(Closure, 0, len(set))
	for p := range set {
		merged = append(merged, p)
	}
	sort.Strings(merged)
	return merged
}

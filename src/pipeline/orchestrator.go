// Package pipeline sequences one build-and-cache run: realize the
// target, and when a cache credential is present, expand and publish
// the dependency closure. Runs for different targets are independent
// processes; their only shared state is the content-addressed store,
// whose writes are idempotent, so no cross-run locking exists here.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sofmeright/cachefreight/src/cache"
	"github.com/sofmeright/cachefreight/src/nixstore"
)

// Builder realizes targets and expands closures. Implemented by
// nixstore.Store.
type Builder interface {
	Realize(ctx context.Context, ref string, buildOpts []string) (*nixstore.BuildResult, error)
	Closure(ctx context.Context, seeds []string, includeRecipes bool) (nixstore.Closure, error)
}

// Publisher uploads a closure to the remote cache. Implemented by
// cache.Client.
type Publisher interface {
	Authenticate(ctx context.Context) error
	Publish(ctx context.Context, closure nixstore.Closure) (*cache.PublishStats, error)
}

// Orchestrator drives the per-target state machine.
type Orchestrator struct {
	Store Builder

	// Credential gates publication. Nil means the run takes the
	// Skipped path, which is the expected outcome for local and
	// unauthenticated builds, not a failure.
	Credential *cache.Credential

	// NewPublisher constructs the publisher once a credential is
	// known to be present.
	NewPublisher func(cred cache.Credential) Publisher

	// SelfTarget is the publishing tool's own build reference. Its
	// closure is published with every target so later pipeline jobs
	// can substitute the tool instead of rebuilding it. Empty = skip.
	SelfTarget string

	// Guard, when set, runs after the credential check and before any
	// upload. An error aborts publication.
	Guard func(ctx context.Context) error

	// Progress, when set, receives per-step reporting.
	Progress func(step, detail string, elapsed time.Duration)
}

// Result is the outcome of one orchestrator run.
type Result struct {
	State   State
	Target  string
	Build   *nixstore.BuildResult
	Closure nixstore.Closure
	Stats   *cache.PublishStats
}

// Run executes build → resolve → publish for one target reference.
// The returned error is non-nil exactly when Result.State is Failed or
// Cancelled.
func (o *Orchestrator) Run(ctx context.Context, ref string, buildOpts []string) (*Result, error) {
	res := &Result{State: Idle, Target: ref}

	// Idle → Building
	res.State = Building
	start := time.Now()
	build, err := o.Store.Realize(ctx, ref, buildOpts)
	if err != nil {
		return res, o.fail(ctx, res, fmt.Errorf("build %s: %w", ref, err))
	}
	res.State = Built
	res.Build = build
	o.report("build", fmt.Sprintf("%d output(s), %d recipe(s)", len(build.OutputPaths), len(build.RecipePaths)), start)

	// Built → Skipped → Done: the non-error fast path.
	if o.Credential == nil {
		res.State = Skipped
		o.report("publish", "no credential, skipped", start)
		res.State = Done
		return res, nil
	}

	// Built → Resolving
	res.State = Resolving
	start = time.Now()
	closure, err := o.resolveClosures(ctx, build)
	if err != nil {
		return res, o.fail(ctx, res, fmt.Errorf("resolve %s: %w", ref, err))
	}
	res.Closure = closure
	o.report("resolve", fmt.Sprintf("%d path(s)", len(closure)), start)

	if o.Guard != nil {
		if err := o.Guard(ctx); err != nil {
			return res, o.fail(ctx, res, fmt.Errorf("publish guard: %w", err))
		}
	}

	// Resolving → Publishing
	res.State = Publishing
	start = time.Now()
	pub := o.NewPublisher(*o.Credential)
	if err := pub.Authenticate(ctx); err != nil {
		return res, o.fail(ctx, res, err)
	}
	stats, err := pub.Publish(ctx, closure)
	res.Stats = stats
	if err != nil {
		// Persistent publish failure fails the job; cache propagation
		// is a pipeline-critical guarantee, never silently degraded.
		return res, o.fail(ctx, res, err)
	}
	o.report("publish", fmt.Sprintf("%d uploaded, %d already cached", stats.Uploaded, stats.Skipped), start)

	res.State = Done
	return res, nil
}

// resolveClosures expands the target's outputs and recipes, plus the
// publishing tool's own closure when configured.
func (o *Orchestrator) resolveClosures(ctx context.Context, build *nixstore.BuildResult) (nixstore.Closure, error) {
	seeds := append(append([]string{}, build.OutputPaths...), build.RecipePaths...)
	closure, err := o.Store.Closure(ctx, seeds, true)
	if err != nil {
		return nil, err
	}

	if o.SelfTarget == "" {
		return closure, nil
	}

	self, err := o.Store.Realize(ctx, o.SelfTarget, nil)
	if err != nil {
		return nil, fmt.Errorf("realizing self target: %w", err)
	}
	selfSeeds := append(append([]string{}, self.OutputPaths...), self.RecipePaths...)
	selfClosure, err := o.Store.Closure(ctx, selfSeeds, true)
	if err != nil {
		return nil, err
	}

	return nixstore.Union(closure, selfClosure), nil
}

// fail marks the terminal error state, distinguishing cancellation
// from failure.
func (o *Orchestrator) fail(ctx context.Context, res *Result, err error) error {
	if ctx.Err() != nil {
		res.State = Cancelled
		return fmt.Errorf("%s: %w", res.Target, ctx.Err())
	}
	res.State = Failed
	return err
}

func (o *Orchestrator) report(step, detail string, start time.Time) {
	if o.Progress != nil {
		o.Progress(step, detail, time.Since(start))
	}
}

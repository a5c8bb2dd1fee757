package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofmeright/cachefreight/src/cache"
	"github.com/sofmeright/cachefreight/src/nixstore"
)

// fakeBuilder serves canned build results and closures per target.
type fakeBuilder struct {
	builds   map[string]*nixstore.BuildResult
	closures map[string]nixstore.Closure
	buildErr error
	realized []string
}

func (f *fakeBuilder) Realize(_ context.Context, ref string, _ []string) (*nixstore.BuildResult, error) {
	f.realized = append(f.realized, ref)
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	b, ok := f.builds[ref]
	if !ok {
		return nil, &nixstore.ResolutionError{Ref: ref, Err: errors.New("unknown target")}
	}
	return b, nil
}

func (f *fakeBuilder) Closure(_ context.Context, seeds []string, _ bool) (nixstore.Closure, error) {
	// Key closures by the first seed, which is the first output path.
	if len(seeds) == 0 {
		return nil, nil
	}
	if c, ok := f.closures[seeds[0]]; ok {
		return c, nil
	}
	return nixstore.Closure(seeds), nil
}

// fakePublisher records calls and returns scripted failures.
type fakePublisher struct {
	authErr    error
	publishErr error
	authCalls  int
	published  []nixstore.Closure
}

func (f *fakePublisher) Authenticate(context.Context) error {
	f.authCalls++
	return f.authErr
}

func (f *fakePublisher) Publish(_ context.Context, closure nixstore.Closure) (*cache.PublishStats, error) {
	f.published = append(f.published, closure)
	if f.publishErr != nil {
		return &cache.PublishStats{}, f.publishErr
	}
	return &cache.PublishStats{Uploaded: int64(len(closure))}, nil
}

func newFakeBuilder() *fakeBuilder {
	return &fakeBuilder{
		builds: map[string]*nixstore.BuildResult{
			".#app": {
				OutputPaths: []string{"/nix/store/aaa-app"},
				RecipePaths: []string{"/nix/store/aaa-app.drv"},
			},
			".#cachefreight": {
				OutputPaths: []string{"/nix/store/fff-cachefreight"},
				RecipePaths: []string{"/nix/store/fff-cachefreight.drv"},
			},
		},
		closures: map[string]nixstore.Closure{
			"/nix/store/aaa-app":          {"/nix/store/aaa-app", "/nix/store/aaa-app.drv", "/nix/store/lib-c"},
			"/nix/store/fff-cachefreight": {"/nix/store/fff-cachefreight", "/nix/store/lib-c"},
		},
	}
}

func TestRunWithoutCredentialSkipsPublication(t *testing.T) {
	builder := newFakeBuilder()
	pub := &fakePublisher{}
	orch := &Orchestrator{
		Store:        builder,
		Credential:   nil,
		NewPublisher: func(cache.Credential) Publisher { return pub },
	}

	res, err := orch.Run(context.Background(), ".#app", nil)
	require.NoError(t, err, "skipping is not a failure")
	assert.Equal(t, Done, res.State)
	assert.NotNil(t, res.Build)
	assert.Nil(t, res.Stats)
	assert.Zero(t, pub.authCalls, "no credential means no cache traffic at all")
	assert.Empty(t, pub.published)
}

func TestRunPublishesTargetAndSelfClosures(t *testing.T) {
	builder := newFakeBuilder()
	pub := &fakePublisher{}
	orch := &Orchestrator{
		Store:        builder,
		Credential:   &cache.Credential{Endpoint: "https://cache.example.com", Token: "t"},
		NewPublisher: func(cache.Credential) Publisher { return pub },
		SelfTarget:   ".#cachefreight",
	}

	res, err := orch.Run(context.Background(), ".#app", nil)
	require.NoError(t, err)
	assert.Equal(t, Done, res.State)
	assert.Equal(t, 1, pub.authCalls)

	require.Len(t, pub.published, 1)
	published := pub.published[0]
	assert.Contains(t, published, "/nix/store/aaa-app")
	assert.Contains(t, published, "/nix/store/aaa-app.drv")
	assert.Contains(t, published, "/nix/store/fff-cachefreight")

	// Shared paths appear once in the merged closure.
	count := 0
	for _, p := range published {
		if p == "/nix/store/lib-c" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	assert.Equal(t, []string{".#app", ".#cachefreight"}, builder.realized)
	assert.Equal(t, int64(len(published)), res.Stats.Uploaded)
}

func TestRunBuildFailure(t *testing.T) {
	builder := newFakeBuilder()
	builder.buildErr = &nixstore.ResolutionError{Ref: ".#app", Err: errors.New("compile error")}
	pub := &fakePublisher{}
	orch := &Orchestrator{
		Store:        builder,
		Credential:   &cache.Credential{Endpoint: "e", Token: "t"},
		NewPublisher: func(cache.Credential) Publisher { return pub },
	}

	res, err := orch.Run(context.Background(), ".#app", nil)
	require.Error(t, err)
	assert.Equal(t, Failed, res.State)
	assert.True(t, res.State.Terminal())
	assert.Zero(t, pub.authCalls)
}

func TestRunAuthFailure(t *testing.T) {
	builder := newFakeBuilder()
	pub := &fakePublisher{authErr: &cache.AuthError{Endpoint: "e", Err: errors.New("token rejected")}}
	orch := &Orchestrator{
		Store:        builder,
		Credential:   &cache.Credential{Endpoint: "e", Token: "bad"},
		NewPublisher: func(cache.Credential) Publisher { return pub },
	}

	res, err := orch.Run(context.Background(), ".#app", nil)

	var authErr *cache.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, Failed, res.State)
	assert.Empty(t, pub.published, "uploads never start on a rejected token")
}

func TestRunPersistentPublishFailureIsFatal(t *testing.T) {
	builder := newFakeBuilder()
	pub := &fakePublisher{publishErr: &cache.PublishError{Path: "/nix/store/lib-c", Retryable: true, Err: errors.New("503")}}
	orch := &Orchestrator{
		Store:        builder,
		Credential:   &cache.Credential{Endpoint: "e", Token: "t"},
		NewPublisher: func(cache.Credential) Publisher { return pub },
	}

	res, err := orch.Run(context.Background(), ".#app", nil)
	require.Error(t, err)
	assert.Equal(t, Failed, res.State)
}

func TestRunGuardBlocksPublication(t *testing.T) {
	builder := newFakeBuilder()
	pub := &fakePublisher{}
	orch := &Orchestrator{
		Store:        builder,
		Credential:   &cache.Credential{Endpoint: "e", Token: "t"},
		NewPublisher: func(cache.Credential) Publisher { return pub },
		Guard:        func(context.Context) error { return errors.New("secret detected") },
	}

	res, err := orch.Run(context.Background(), ".#app", nil)
	require.Error(t, err)
	assert.Equal(t, Failed, res.State)
	assert.Zero(t, pub.authCalls)
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	builder := newFakeBuilder()
	builder.buildErr = context.Canceled
	cancel()

	orch := &Orchestrator{Store: builder}
	res, err := orch.Run(ctx, ".#app", nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Cancelled, res.State)
	assert.True(t, res.State.Terminal())
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "building", Building.String())
	assert.Equal(t, "done", Done.String())
	assert.False(t, Publishing.Terminal())
	assert.True(t, Failed.Terminal())
}

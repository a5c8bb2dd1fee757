// Package manifest assembles and publishes multi-architecture manifest
// lists from per-architecture image archives left behind by independent
// build jobs. It runs strictly after those jobs: the archives already
// existing on disk is the external barrier, not anything polled or
// locked here.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sofmeright/cachefreight/src/config"
)

// Engine is the container engine surface the publisher needs.
// Implemented by Docker; faked in tests.
type Engine interface {
	Load(ctx context.Context, archive string) (string, error)
	Tag(ctx context.Context, src, dst string) error
	Push(ctx context.Context, ref string) error
	Login(ctx context.Context, server, user, pass string) error
	ManifestCreate(ctx context.Context, list string, refs []string) error
	ManifestPush(ctx context.Context, list string) error
}

// Publisher pushes per-architecture tags and manifest lists to every
// configured registry.
type Publisher struct {
	Engine        Engine
	Registries    []config.RegistryConfig
	Architectures []string // fixed supported set

	// LookupEnv resolves registry credentials. Defaults to os.Getenv.
	LookupEnv func(key string) string

	// Log receives isolated per-registry failures.
	Log io.Writer
}

// RegistryResult is the outcome for one registry.
type RegistryResult struct {
	Registry  string
	Pushed    []string // per-architecture refs pushed
	Manifests []string // manifest lists pushed
	Err       error
}

// Result is the outcome of one publish run.
type Result struct {
	Loaded     map[string]string // architecture → loaded image ref
	Missing    []string          // architectures with no archive
	Registries []RegistryResult
}

// Publish loads each bundle, pushes `<commit>-<arch>` tags to every
// registry, then assembles manifest lists under the commit tag, the ref
// tag, and — only for release triggers — latest.
//
// Registries are isolated from each other: one registry failing is
// logged and does not abort its siblings, but fails the overall
// outcome. An incomplete architecture set is a ManifestError raised
// before any manifest assembly; a manifest list with a missing entry is
// never pushed.
func (p *Publisher) Publish(ctx context.Context, bundles []Bundle, tags Tags) (*Result, error) {
	res := &Result{Loaded: make(map[string]string)}

	byArch := make(map[string]Bundle, len(bundles))
	for _, b := range bundles {
		byArch[b.Architecture] = b
	}

	// Load whatever archives exist. A malformed archive is fatal; an
	// absent one is recorded and surfaces as a ManifestError below.
	for _, arch := range p.Architectures {
		b, ok := byArch[arch]
		if !ok {
			res.Missing = append(res.Missing, arch)
			continue
		}
		if _, err := os.Stat(b.Path); err != nil {
			res.Missing = append(res.Missing, arch)
			continue
		}
		ref, err := p.Engine.Load(ctx, b.Path)
		if err != nil {
			return res, &LoadError{Archive: b.Path, Err: err}
		}
		res.Loaded[arch] = ref
	}

	// Per-architecture pushes, isolated per registry.
	for _, reg := range p.Registries {
		res.Registries = append(res.Registries, p.pushArches(ctx, reg, res.Loaded, tags))
	}

	// Completeness gate: manifests are assembled only from the full
	// architecture set, never a partial one.
	if len(res.Missing) > 0 {
		return res, &ManifestError{Missing: res.Missing}
	}

	// Manifest lists, only for registries whose arch pushes all landed.
	for i := range res.Registries {
		rr := &res.Registries[i]
		if rr.Err != nil {
			continue
		}
		p.pushManifests(ctx, p.Registries[i], rr, tags)
	}

	var errs []error
	for _, rr := range res.Registries {
		if rr.Err != nil {
			errs = append(errs, rr.Err)
		}
	}
	return res, errors.Join(errs...)
}

// pushArches logs in and pushes every loaded architecture tag to one
// registry.
func (p *Publisher) pushArches(ctx context.Context, reg config.RegistryConfig, loaded map[string]string, tags Tags) RegistryResult {
	rr := RegistryResult{Registry: reg.URL}

	if err := p.login(ctx, reg); err != nil {
		rr.Err = &RegistryPushError{Registry: reg.URL, Err: err}
		p.logf("%s: %v", reg.URL, err)
		return rr
	}

	for _, arch := range p.Architectures {
		src, ok := loaded[arch]
		if !ok {
			continue
		}
		dst := fmt.Sprintf("%s/%s:%s-%s", reg.URL, reg.Path, tags.Commit, arch)
		if err := p.Engine.Tag(ctx, src, dst); err != nil {
			rr.Err = &RegistryPushError{Registry: reg.URL, Ref: dst, Err: err}
			p.logf("%s: %v", reg.URL, rr.Err)
			return rr
		}
		if err := p.Engine.Push(ctx, dst); err != nil {
			rr.Err = &RegistryPushError{Registry: reg.URL, Ref: dst, Err: err}
			p.logf("%s: %v", reg.URL, rr.Err)
			return rr
		}
		rr.Pushed = append(rr.Pushed, dst)
	}
	return rr
}

// pushManifests assembles and pushes the manifest lists for one
// registry whose per-architecture pushes all succeeded.
func (p *Publisher) pushManifests(ctx context.Context, reg config.RegistryConfig, rr *RegistryResult, tags Tags) {
	names := []string{tags.Commit, tags.Ref}
	if tags.Latest {
		names = append(names, "latest")
	}

	entries := make([]string, 0, len(p.Architectures))
	for _, arch := range p.Architectures {
		entries = append(entries, fmt.Sprintf("%s/%s:%s-%s", reg.URL, reg.Path, tags.Commit, arch))
	}

	for _, name := range names {
		list := fmt.Sprintf("%s/%s:%s", reg.URL, reg.Path, name)
		if err := p.Engine.ManifestCreate(ctx, list, entries); err != nil {
			rr.Err = &RegistryPushError{Registry: reg.URL, Ref: list, Err: err}
			p.logf("%s: %v", reg.URL, rr.Err)
			return
		}
		if err := p.Engine.ManifestPush(ctx, list); err != nil {
			rr.Err = &RegistryPushError{Registry: reg.URL, Ref: list, Err: err}
			p.logf("%s: %v", reg.URL, rr.Err)
			return
		}
		rr.Manifests = append(rr.Manifests, list)
	}
}

// login resolves USER/PASS from the registry's env prefix and
// authenticates. No prefix means an unauthenticated push.
func (p *Publisher) login(ctx context.Context, reg config.RegistryConfig) error {
	if reg.Credentials == "" {
		return nil
	}
	lookup := p.LookupEnv
	if lookup == nil {
		lookup = os.Getenv
	}
	user := lookup(reg.Credentials + "_USER")
	pass := lookup(reg.Credentials + "_PASS")
	if user == "" || pass == "" {
		return fmt.Errorf("credentials %s_USER/%s_PASS not set", reg.Credentials, reg.Credentials)
	}
	return p.Engine.Login(ctx, reg.URL, user, pass)
}

func (p *Publisher) logf(format string, args ...any) {
	if p.Log != nil {
		fmt.Fprintf(p.Log, format+"\n", args...)
	}
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sofmeright/cachefreight/src/gitver"
	"github.com/sofmeright/cachefreight/src/manifest"
	"github.com/sofmeright/cachefreight/src/output"
	"github.com/sofmeright/cachefreight/src/project"
	"github.com/sofmeright/cachefreight/src/version"
)

var (
	mpArchiveDir string
	mpDryRun     bool
)

var manifestPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Push per-arch images and manifest lists",
	Long: `Load the per-architecture image archives produced by earlier build
jobs, push each to every configured registry under <commit>-<arch>
tags, then assemble and push manifest lists under the commit tag, the
ref tag, and — for release tag triggers only — latest.

All archives must already exist; this command runs strictly after the
per-architecture build jobs.`,
	RunE: runManifestPublish,
}

func init() {
	manifestPublishCmd.Flags().StringVar(&mpArchiveDir, "archive-dir", ".", "directory holding the per-architecture image archives")
	manifestPublishCmd.Flags().BoolVar(&mpDryRun, "dry-run", false, "show the plan without executing")

	manifestCmd.AddCommand(manifestPublishCmd)
}

func runManifestPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	color := output.UseColor()
	w := os.Stdout
	start := time.Now()

	output.Banner(w, version.Version, version.Commit, color)

	meta, err := project.Detect(".")
	if err != nil {
		return fmt.Errorf("detecting project: %w", err)
	}

	ref, err := gitver.Detect(".")
	if err != nil {
		return fmt.Errorf("detecting trigger reference: %w", err)
	}
	tags := manifest.Tags{
		Commit: ref.CommitTag(),
		Ref:    ref.RefTag(),
		Latest: ref.IsRelease(cfg.Policy.ReleaseTags),
	}

	bundles := make([]manifest.Bundle, 0, len(cfg.Docker.Architectures))
	for _, arch := range cfg.Docker.Architectures {
		bundles = append(bundles, manifest.Bundle{
			Architecture: arch,
			Kind:         manifest.KindImage,
			Path:         filepath.Join(mpArchiveDir, meta.ArchiveName(cfg.Docker.ArchiveTemplate, arch)),
		})
	}

	if mpDryRun {
		fmt.Printf("project:  %s\n", meta.Name)
		fmt.Printf("tags:     commit=%s ref=%s latest=%v\n", tags.Commit, tags.Ref, tags.Latest)
		for _, b := range bundles {
			fmt.Printf("archive:  %s (%s)\n", b.Path, b.Architecture)
		}
		for _, reg := range cfg.Docker.Registries {
			fmt.Printf("registry: %s/%s\n", reg.URL, reg.Path)
		}
		return nil
	}

	pub := &manifest.Publisher{
		Engine:        manifest.NewDocker(verbose),
		Registries:    cfg.Docker.Registries,
		Architectures: cfg.Docker.Architectures,
		Log:           os.Stderr,
	}

	output.SectionStart(w, "cf_manifest", "Manifest")
	result, pubErr := pub.Publish(ctx, bundles, tags)
	elapsed := time.Since(start)

	sec := output.NewSection(w, "Manifest", elapsed, color)
	for arch, img := range result.Loaded {
		sec.Row("%-10s→ %s", arch, img)
	}
	for _, rr := range result.Registries {
		status := "success"
		if rr.Err != nil {
			status = "failed"
		}
		detail := fmt.Sprintf("%d tag(s), %d manifest(s)", len(rr.Pushed), len(rr.Manifests))
		output.RowStatus(sec, rr.Registry, detail, status, color)
	}
	if len(result.Missing) > 0 {
		sec.Separator()
		for _, arch := range result.Missing {
			output.RowStatus(sec, arch, "archive missing", "failed", color)
		}
	}
	sec.Close()
	output.SectionEnd(w, "cf_manifest")

	return pubErr
}

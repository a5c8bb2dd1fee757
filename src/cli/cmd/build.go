package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sofmeright/cachefreight/src/badge"
	"github.com/sofmeright/cachefreight/src/cache"
	"github.com/sofmeright/cachefreight/src/guard"
	"github.com/sofmeright/cachefreight/src/nixstore"
	"github.com/sofmeright/cachefreight/src/output"
	"github.com/sofmeright/cachefreight/src/pipeline"
	"github.com/sofmeright/cachefreight/src/version"
)

var buildCmd = &cobra.Command{
	Use:   "build <target-reference> [build-options...]",
	Short: "Build a target and publish its closure",
	Long: `Build a target reference and, when a cache credential is present in
the environment, publish its full dependency closure (and the closure
of cachefreight itself) to the remote binary cache.

Without a credential the publish step is skipped and the command still
exits 0 — the expected path for local and unauthenticated runs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	color := output.UseColor()
	w := os.Stdout
	start := time.Now()

	ref := args[0]
	buildOpts := args[1:]

	output.Banner(w, version.Version, version.Commit, color)
	output.ContextBlock(w, pipelineContextKV(ref))

	cred := cache.CredentialFromEnv(cfg.Cache.Endpoint, cfg.Cache.TokenEnv)
	store := nixstore.NewStore()

	output.SectionStart(w, "cf_pipeline", "Pipeline")
	sec := output.NewSection(w, "Pipeline", 0, color)

	orch := &pipeline.Orchestrator{
		Store:      store,
		Credential: cred,
		NewPublisher: func(c cache.Credential) pipeline.Publisher {
			return cache.NewClient(c, store, cfg.Cache.MaxAttempts, cfg.Cache.Timeout.Std(), cfg.Cache.Parallel)
		},
		SelfTarget: cfg.Cache.SelfTarget,
		Progress: func(step, detail string, elapsed time.Duration) {
			sec.Row("%-10s%-40s %s", step, detail, output.Dimmed(elapsed.Round(time.Millisecond).String(), color))
		},
	}
	if cfg.Guard.Enabled {
		scanner := &guard.Scanner{RootDir: "."}
		orch.Guard = func(ctx context.Context) error { return scanner.Scan(ctx) }
	}

	result, runErr := orch.Run(ctx, ref, buildOpts)

	status := "success"
	switch result.State {
	case pipeline.Failed, pipeline.Cancelled:
		status = "failed"
	case pipeline.Done:
		if result.Stats == nil {
			status = "skipped"
		}
	}
	if runErr != nil {
		output.RowStatus(sec, "status", result.State.String(), "failed", color)
	}
	sec.Separator()
	output.SummaryTotal(w, time.Since(start), status, color)
	sec.Close()
	output.SectionEnd(w, "cf_pipeline")

	writeBadge(result.State, result.Stats)

	if runErr != nil {
		return runErr
	}
	return nil
}

// writeBadge records the run outcome as an SVG, when configured.
func writeBadge(state pipeline.State, stats *cache.PublishStats) {
	if !cfg.Badge.Enabled {
		return
	}

	eng, err := badge.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: badge: %v\n", err)
		return
	}

	value := state.String()
	if state == pipeline.Done && stats != nil {
		value = fmt.Sprintf("%d pushed", stats.Uploaded)
	}
	svg := eng.Generate(badge.Badge{
		Label: cfg.Badge.Label,
		Value: value,
		Color: badge.StatusColor(state.String()),
	})

	if err := os.MkdirAll(filepath.Dir(cfg.Badge.Path), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "warning: badge: %v\n", err)
		return
	}
	if err := os.WriteFile(cfg.Badge.Path, []byte(svg), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "warning: badge: %v\n", err)
	}
}

// pipelineContextKV returns key-value pairs for the context block.
func pipelineContextKV(ref string) []output.KV {
	kv := []output.KV{{Key: "Target", Value: ref}}

	if pipe := os.Getenv("CI_PIPELINE_ID"); pipe != "" {
		kv = append(kv, output.KV{Key: "Pipeline", Value: pipe})
	}
	if sha := os.Getenv("CI_COMMIT_SHORT_SHA"); sha != "" {
		kv = append(kv, output.KV{Key: "Commit", Value: sha})
	}
	if branch := os.Getenv("CI_COMMIT_BRANCH"); branch != "" {
		kv = append(kv, output.KV{Key: "Branch", Value: branch})
	} else if tag := os.Getenv("CI_COMMIT_TAG"); tag != "" {
		kv = append(kv, output.KV{Key: "Tag", Value: tag})
	}

	if cfg.Cache.Endpoint != "" {
		mode := "skip (no credential)"
		if os.Getenv(cfg.Cache.TokenEnv) != "" {
			mode = cfg.Cache.Endpoint
		}
		kv = append(kv, output.KV{Key: "Cache", Value: mode})
	}
	return kv
}

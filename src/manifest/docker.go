package manifest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Docker wraps the docker CLI for image load, tag, push, and manifest
// list operations.
type Docker struct {
	Verbose bool
	Stderr  io.Writer

	run func(ctx context.Context, stdin string, args ...string) (string, error)
}

// NewDocker creates a docker runner with default output writers.
func NewDocker(verbose bool) *Docker {
	d := &Docker{
		Verbose: verbose,
		Stderr:  os.Stderr,
	}
	d.run = d.execRun
	return d
}

// Load imports an image archive into the engine's local store and
// returns the loaded image reference.
func (d *Docker) Load(ctx context.Context, archive string) (string, error) {
	out, err := d.run(ctx, "", "load", "--input", archive)
	if err != nil {
		return "", err
	}
	// docker prints: "Loaded image: <ref>" (or "Loaded image ID: <id>")
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if ref, ok := strings.CutPrefix(line, "Loaded image: "); ok {
			return strings.TrimSpace(ref), nil
		}
		if id, ok := strings.CutPrefix(line, "Loaded image ID: "); ok {
			return strings.TrimSpace(id), nil
		}
	}
	return "", fmt.Errorf("no image reference in docker load output")
}

// Tag aliases a loaded image under a new reference.
func (d *Docker) Tag(ctx context.Context, src, dst string) error {
	_, err := d.run(ctx, "", "tag", src, dst)
	return err
}

// Push uploads one image reference.
func (d *Docker) Push(ctx context.Context, ref string) error {
	_, err := d.run(ctx, "", "push", ref)
	return err
}

// Login authenticates against a registry, feeding the password over
// stdin so it never appears in the process list.
func (d *Docker) Login(ctx context.Context, server, user, pass string) error {
	_, err := d.run(ctx, pass, "login", server, "--username", user, "--password-stdin")
	return err
}

// ManifestCreate assembles a manifest list from per-architecture refs.
func (d *Docker) ManifestCreate(ctx context.Context, list string, refs []string) error {
	args := append([]string{"manifest", "create", "--amend", list}, refs...)
	_, err := d.run(ctx, "", args...)
	return err
}

// ManifestPush uploads a manifest list.
func (d *Docker) ManifestPush(ctx context.Context, list string) error {
	_, err := d.run(ctx, "", "manifest", "push", list)
	return err
}

// execRun executes one docker command.
func (d *Docker) execRun(ctx context.Context, stdin string, args ...string) (string, error) {
	if d.Verbose {
		fmt.Fprintf(d.Stderr, "exec: docker %s\n", strings.Join(args, " "))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("docker %s: %w", args[0], err)
		}
		return "", fmt.Errorf("docker %s: %w: %s", args[0], err, msg)
	}
	return stdout.String(), nil
}

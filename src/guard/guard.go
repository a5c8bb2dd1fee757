// Package guard runs a secret scan over the repository before anything
// is uploaded to a shared binary cache. A credential committed to the
// tree would otherwise be baked into content-addressed artifacts that
// every downstream consumer can fetch.
package guard

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// maxFileSize skips large blobs; secrets live in text files.
const maxFileSize = 1 << 20

var skipDirs = map[string]bool{
	".git":         true,
	"target":       true,
	"node_modules": true,
	"result":       true,
}

// Scanner detects leaked secrets in a working tree.
type Scanner struct {
	RootDir string

	detector *detect.Detector
}

// Scan walks the tree and returns an error if any secret is found.
func (s *Scanner) Scan(ctx context.Context) error {
	if s.detector == nil {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return fmt.Errorf("initializing secret detector: %w", err)
		}
		s.detector = d
	}

	var hits []string
	err := filepath.WalkDir(s.RootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxFileSize {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		rel, rerr := filepath.Rel(s.RootDir, path)
		if rerr != nil {
			rel = path
		}
		for _, f := range s.detector.DetectBytes(data) {
			hits = append(hits, fmt.Sprintf("%s:%d: %s (%s)", rel, f.StartLine+1, f.Description, f.RuleID))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(hits) > 0 {
		return fmt.Errorf("%d secret(s) detected, refusing to publish:\n  %s",
			len(hits), strings.Join(hits, "\n  "))
	}
	return nil
}

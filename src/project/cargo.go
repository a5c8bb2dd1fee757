// Package project reads artifact metadata from the repository so
// bundles and archives carry the project's own name and version.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Metadata identifies the artifact being built.
type Metadata struct {
	Name    string
	Version string
}

// Detect reads the project name and version from Cargo.toml at rootDir.
// Without a manifest the directory name is used and the version is empty.
func Detect(rootDir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(rootDir, "Cargo.toml"))
	if err != nil {
		if os.IsNotExist(err) {
			abs, aerr := filepath.Abs(rootDir)
			if aerr != nil {
				abs = rootDir
			}
			return &Metadata{Name: filepath.Base(abs)}, nil
		}
		return nil, err
	}

	var cargo struct {
		Package struct {
			Name    string `toml:"name"`
			Version string `toml:"version"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal(data, &cargo); err != nil {
		return nil, fmt.Errorf("parsing Cargo.toml: %w", err)
	}
	if cargo.Package.Name == "" {
		return nil, fmt.Errorf("Cargo.toml has no [package] name")
	}

	return &Metadata{
		Name:    cargo.Package.Name,
		Version: cargo.Package.Version,
	}, nil
}

// ArchiveName expands an archive template against the metadata and an
// architecture. Supported placeholders: {name}, {arch}.
func (m *Metadata) ArchiveName(template, arch string) string {
	out := strings.ReplaceAll(template, "{name}", m.Name)
	out = strings.ReplaceAll(out, "{arch}", arch)
	return out
}

package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectReadsCargoManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := `
[package]
name = "freightd"
version = "0.4.2"
edition = "2021"

[dependencies]
serde = "1"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(manifest), 0o644))

	meta, err := Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, "freightd", meta.Name)
	assert.Equal(t, "0.4.2", meta.Version)
}

func TestDetectFallsBackToDirectoryName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "myproject")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	meta, err := Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, "myproject", meta.Name)
	assert.Empty(t, meta.Version)
}

func TestDetectRejectsManifestWithoutName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte("[dependencies]\nserde = \"1\"\n"), 0o644))

	_, err := Detect(dir)
	require.Error(t, err)
}

func TestArchiveName(t *testing.T) {
	meta := &Metadata{Name: "freightd", Version: "0.4.2"}
	got := meta.ArchiveName("{name}-{arch}.docker.tar.gz", "arm64")
	assert.Equal(t, "freightd-arm64.docker.tar.gz", got)
}

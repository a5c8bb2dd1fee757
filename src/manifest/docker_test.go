package manifest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scriptedDocker(stdout string) (*Docker, *[][]string) {
	var calls [][]string
	d := &Docker{}
	d.run = func(_ context.Context, stdin string, args ...string) (string, error) {
		calls = append(calls, append([]string{"stdin=" + stdin}, args...))
		return stdout, nil
	}
	return d, &calls
}

func TestDockerLoadParsesImageRef(t *testing.T) {
	d, _ := scriptedDocker("Loaded image: acme/app:abc12345-amd64\n")
	ref, err := d.Load(context.Background(), "app-amd64.docker.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, "acme/app:abc12345-amd64", ref)
}

func TestDockerLoadParsesImageID(t *testing.T) {
	d, _ := scriptedDocker("Loaded image ID: sha256:deadbeef\n")
	ref, err := d.Load(context.Background(), "app.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, "sha256:deadbeef", ref)
}

func TestDockerLoadRejectsUnexpectedOutput(t *testing.T) {
	d, _ := scriptedDocker("something else entirely\n")
	_, err := d.Load(context.Background(), "app.tar.gz")
	require.Error(t, err)
}

func TestDockerLoginFeedsPasswordOverStdin(t *testing.T) {
	d, calls := scriptedDocker("")
	require.NoError(t, d.Login(context.Background(), "docker.io", "user", "hunter2"))

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "stdin=hunter2", call[0])
	assert.Contains(t, call, "--password-stdin")
	assert.NotContains(t, call, "hunter2")
}

func TestDockerManifestCreateAmends(t *testing.T) {
	d, calls := scriptedDocker("")
	refs := []string{"docker.io/acme/app:abc-amd64", "docker.io/acme/app:abc-arm64"}
	require.NoError(t, d.ManifestCreate(context.Background(), "docker.io/acme/app:abc", refs))

	call := (*calls)[0]
	assert.Equal(t, []string{"stdin=", "manifest", "create", "--amend",
		"docker.io/acme/app:abc",
		"docker.io/acme/app:abc-amd64",
		"docker.io/acme/app:abc-arm64",
	}, call)
}

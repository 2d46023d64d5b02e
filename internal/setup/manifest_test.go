package setup

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/deploy-installer/internal/deployconf"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAnswers(t *testing.T) {
	path := writeManifest(t, `
secret_token: abc123
repo_url: https://github.com/acme/widgets
branch: main
target_dir: /home/acme/public_html
`)

	in, err := LoadAnswers(path)
	require.NoError(t, err)
	assert.Equal(t, deployconf.Input{
		SecretToken: "abc123",
		RepoURL:     "https://github.com/acme/widgets",
		Branch:      "main",
		TargetDir:   "/home/acme/public_html",
	}, in)
}

func TestLoadAnswers_UnknownField(t *testing.T) {
	path := writeManifest(t, "secret_token: x\nrepository: acme/widgets\n")

	_, err := LoadAnswers(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse answers")
}

func TestLoadAnswers_EmptyFile(t *testing.T) {
	in, err := LoadAnswers(writeManifest(t, ""))
	require.NoError(t, err)
	assert.Equal(t, deployconf.Input{}, in)
}

func TestWriteAnswers_RoundTripAndNoOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.yaml")
	in := deployconf.Input{SecretToken: "tok", Branch: "main", TargetDir: "/srv/"}

	require.NoError(t, WriteAnswers(in, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadAnswers(path)
	require.NoError(t, err)
	assert.Equal(t, in, loaded)

	err = WriteAnswers(deployconf.Input{SecretToken: "other"}, path)
	require.Error(t, err)
	loaded, err = LoadAnswers(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.SecretToken)
}

func TestGenerateFromManifest(t *testing.T) {
	manifest := writeManifest(t, "secret_token: abc123\nrepo_url: github.com/acme/widgets\ntarget_dir: /srv/www\n")
	configPath := filepath.Join(t.TempDir(), "deploy-config.php")
	var out bytes.Buffer

	res, err := GenerateFromManifest(manifest, configPath, false, &out)
	require.NoError(t, err)
	assert.False(t, res.Replaced)
	assert.Equal(t, "git@github.com:acme/widgets.git", res.Values.RemoteRepository)
	assert.Equal(t, "main", res.Values.Branch)
	assert.True(t, deployconf.IsFullyConfigured(configPath))

	_, err = GenerateFromManifest(manifest, configPath, false, &out)
	assert.True(t, errors.Is(err, ErrAlreadyConfigured))

	res, err = GenerateFromManifest(manifest, configPath, true, &out)
	require.NoError(t, err)
	assert.True(t, res.Replaced)
}

func TestGenerateFromManifest_ValidationErrors(t *testing.T) {
	manifest := writeManifest(t, "branch: main\n")
	configPath := filepath.Join(t.TempDir(), "deploy-config.php")
	var out bytes.Buffer

	_, err := GenerateFromManifest(manifest, configPath, false, &out)

	require.Error(t, err)
	assert.Equal(t, "3 validation errors", err.Error())
	assert.Contains(t, out.String(), "secret_token: Secret access token is required")
	assert.Contains(t, out.String(), "target_dir: Target directory is required")
	assert.NoFileExists(t, configPath)
}

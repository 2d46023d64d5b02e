package sshkey

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestNativeGenerator_WritesKeyPair(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deploy_key")

	err := NativeGenerator{Comment: "deploy@test"}.Generate(context.Background(), path)
	require.NoError(t, err)

	privPEM, err := os.ReadFile(path)
	require.NoError(t, err)
	signer, err := ssh.ParsePrivateKey(privPEM)
	require.NoError(t, err)
	assert.Equal(t, ssh.KeyAlgoED25519, signer.PublicKey().Type())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	pubLine, err := os.ReadFile(path + ".pub")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pubLine), "ssh-ed25519 "))
	assert.True(t, strings.HasSuffix(string(pubLine), " deploy@test\n"))

	// The public file must belong to the private key.
	pub, _, _, _, err := ssh.ParseAuthorizedKey(pubLine)
	require.NoError(t, err)
	assert.Equal(t, signer.PublicKey().Marshal(), pub.Marshal())
}

func TestNativeGenerator_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deploy_key")
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0o600))

	err := NativeGenerator{}.Generate(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create private key")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))
	assert.NoFileExists(t, path+".pub")
}

func TestNativeGenerator_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent", "deploy_key")

	err := NativeGenerator{}.Generate(context.Background(), path)
	require.Error(t, err)
}

func TestNativeGenerator_KeysAreUnique(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, NativeGenerator{}.Generate(context.Background(), a))
	require.NoError(t, NativeGenerator{}.Generate(context.Background(), b))

	pubA, _ := os.ReadFile(a + ".pub")
	pubB, _ := os.ReadFile(b + ".pub")
	assert.NotEqual(t, pubA, pubB)
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deploy_key")
	require.NoError(t, NativeGenerator{}.Generate(context.Background(), path))
	pubLine, err := os.ReadFile(path + ".pub")
	require.NoError(t, err)

	fp := Fingerprint(strings.TrimSpace(string(pubLine)))
	assert.True(t, strings.HasPrefix(fp, "SHA256:"), fp)

	assert.Equal(t, "", Fingerprint("not a key"))
}

// Package sshkey provisions the deploy key: an ed25519 key pair under
// ~/.ssh whose public half is also registered in authorized_keys.
//
// The private key file is the only record of a previous run. When it exists
// no key is generated, whatever state the rest of ~/.ssh is in.
package sshkey

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const (
	KeyName            = "deploy_key"
	AuthorizedKeysName = "authorized_keys"
)

// KeyPaths are the files a provisioned home directory contains.
type KeyPaths struct {
	SSHDir         string
	PrivateKeyPath string
	PublicKeyPath  string
	AuthorizedKeys string
}

// PathsFor returns the deploy key layout under home.
func PathsFor(home string) KeyPaths {
	sshDir := filepath.Join(home, ".ssh")
	priv := filepath.Join(sshDir, KeyName)
	return KeyPaths{
		SSHDir:         sshDir,
		PrivateKeyPath: priv,
		PublicKeyPath:  priv + ".pub",
		AuthorizedKeys: filepath.Join(sshDir, AuthorizedKeysName),
	}
}

// Result is the outcome of EnsureDeployKey. Errors and Messages are meant for
// the operator and keep their order.
type Result struct {
	KeyPaths
	PublicKey   string
	Fingerprint string
	// Generated is true when this call created the key pair.
	Generated bool
	// Generator names the KeyGenerator that ran, if any.
	Generator string
	Messages  []string
	Errors    []string
}

// OK reports whether provisioning finished without errors.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// Provisioner materialises the deploy key.
type Provisioner struct {
	gen    KeyGenerator
	logger zerolog.Logger
}

func NewProvisioner(gen KeyGenerator, logger zerolog.Logger) *Provisioner {
	return &Provisioner{gen: gen, logger: logger}
}

// EnsureDeployKey makes sure home/.ssh/deploy_key exists and that its public
// key appears in authorized_keys exactly once. It never retries and never
// rolls back partially created files.
func (p *Provisioner) EnsureDeployKey(ctx context.Context, home string) *Result {
	res := &Result{}
	if strings.TrimSpace(home) == "" {
		res.Errors = append(res.Errors, "Could not determine home directory. Please set HOME environment variable or contact your hosting provider.")
		return res
	}

	res.KeyPaths = PathsFor(home)
	log := p.logger.With().Str("key", res.PrivateKeyPath).Logger()

	_, statErr := os.Stat(res.PrivateKeyPath)
	switch {
	case statErr != nil && !errors.Is(statErr, fs.ErrNotExist):
		log.Error().Err(statErr).Msg("check for existing deploy key")
		res.Errors = append(res.Errors, "Failed to check for an existing SSH key at "+res.PrivateKeyPath+" - check permissions on "+res.SSHDir)
		return res
	case statErr == nil:
		res.Messages = append(res.Messages, "SSH key already exists")
		log.Info().Msg("deploy key present, skipping generation")
		if pub, err := readPublicKey(res.PublicKeyPath); err == nil {
			res.PublicKey = pub
			res.Fingerprint = Fingerprint(pub)
			p.authorize(res)
		}
		return res
	}

	if !dirExists(res.SSHDir) {
		if err := os.MkdirAll(res.SSHDir, 0o700); err != nil {
			log.Error().Err(err).Msg("create .ssh directory")
			res.Errors = append(res.Errors, "Failed to create .ssh directory. Please create it manually with: mkdir -p "+res.SSHDir+" && chmod 700 "+res.SSHDir)
			return res
		}
		res.Messages = append(res.Messages, "Created .ssh directory")
	}

	res.Generator = p.gen.Name()
	if picker, ok := p.gen.(generatorPicker); ok {
		res.Generator = picker.Pick(ctx).Name()
	}
	// The generator's own verdict is only logged; the public key file decides.
	if err := p.gen.Generate(ctx, res.PrivateKeyPath); err != nil {
		log.Warn().Err(err).Str("generator", res.Generator).Msg("key generator reported an error")
	}

	pub, err := readPublicKey(res.PublicKeyPath)
	if err != nil {
		log.Error().Err(err).Msg("public key missing after generation")
		res.Errors = append(res.Errors, "SSH key generation may have failed - check permissions")
		res.Errors = append(res.Errors, "Try running manually in terminal: ssh-keygen -t ed25519 -f "+res.PrivateKeyPath)
		return res
	}

	res.Generated = true
	res.PublicKey = pub
	res.Fingerprint = Fingerprint(pub)
	res.Messages = append(res.Messages, "SSH key pair generated successfully")
	log.Info().Str("generator", res.Generator).Str("fingerprint", res.Fingerprint).Msg("deploy key generated")

	p.authorize(res)
	return res
}

// authorize appends the public key to authorized_keys unless its text
// already occurs anywhere in the file. A line carrying options or another
// comment around the same key counts as present.
func (p *Provisioner) authorize(res *Result) {
	if res.PublicKey == "" {
		return
	}

	if !fileExists(res.AuthorizedKeys) {
		f, err := os.OpenFile(res.AuthorizedKeys, os.O_WRONLY|os.O_CREATE, 0o600)
		if err != nil {
			p.logger.Error().Err(err).Str("path", res.AuthorizedKeys).Msg("create authorized_keys")
			res.Errors = append(res.Errors, "Failed to create authorized_keys - add the public key manually")
			return
		}
		f.Close()
		os.Chmod(res.AuthorizedKeys, 0o600)
	}

	// An unreadable file is treated as empty.
	existing, _ := os.ReadFile(res.AuthorizedKeys)
	if strings.Contains(string(existing), res.PublicKey) {
		return
	}

	entry := res.PublicKey + "\n"
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		entry = "\n" + entry
	}

	f, err := os.OpenFile(res.AuthorizedKeys, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		p.logger.Error().Err(err).Str("path", res.AuthorizedKeys).Msg("open authorized_keys")
		res.Errors = append(res.Errors, "Failed to update authorized_keys - add the public key manually")
		return
	}
	defer f.Close()
	if _, err := f.WriteString(entry); err != nil {
		p.logger.Error().Err(err).Str("path", res.AuthorizedKeys).Msg("append authorized_keys")
		res.Errors = append(res.Errors, "Failed to update authorized_keys - add the public key manually")
		return
	}
	res.Messages = append(res.Messages, "Public key added to authorized_keys")
}

// LoadPublicKey returns the trimmed deploy public key under home and its
// fingerprint, or empty strings when there is none.
func LoadPublicKey(home string) (publicKey, fingerprint string) {
	if home == "" {
		return "", ""
	}
	pub, err := readPublicKey(PathsFor(home).PublicKeyPath)
	if err != nil {
		return "", ""
	}
	return pub, Fingerprint(pub)
}

func readPublicKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	pub := strings.TrimSpace(string(data))
	if pub == "" {
		return "", errors.New("empty public key")
	}
	return pub, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func dirExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

package sshkey

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
)

// NativeGenerator creates an unencrypted ed25519 key pair in-process. It
// writes the same OpenSSH formats ssh-keygen does, so hosts without the
// binary (or without process execution) still get a usable deploy key.
type NativeGenerator struct {
	// Comment is appended to the public key line.
	Comment string
}

func (NativeGenerator) Name() string { return "native" }

// Generate writes privateKeyPath (0600) and privateKeyPath+".pub" (0644).
// It refuses to overwrite an existing private key.
func (g NativeGenerator) Generate(_ context.Context, privateKeyPath string) error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("sshkey: generate key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, g.Comment)
	if err != nil {
		return fmt.Errorf("sshkey: marshal private key: %w", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return fmt.Errorf("sshkey: convert public key: %w", err)
	}
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))
	if g.Comment != "" {
		line += " " + g.Comment
	}

	f, err := os.OpenFile(privateKeyPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("sshkey: create private key: %w", err)
	}
	if err := pem.Encode(f, block); err != nil {
		f.Close()
		return fmt.Errorf("sshkey: write private key: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("sshkey: close private key: %w", err)
	}

	if err := os.WriteFile(privateKeyPath+".pub", []byte(line+"\n"), 0o644); err != nil {
		return fmt.Errorf("sshkey: write public key: %w", err)
	}
	return nil
}

// Fingerprint returns the SHA256 fingerprint of an authorized_keys style
// public key line, or "" when the line does not parse.
func Fingerprint(publicKey string) string {
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(publicKey))
	if err != nil {
		return ""
	}
	return ssh.FingerprintSHA256(key)
}

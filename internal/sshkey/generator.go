package sshkey

import (
	"context"

	"github.com/edvin/deploy-installer/internal/probe"
)

// KeyGenerator creates a passphrase-less ed25519 key pair at the given path
// and path+".pub". The provisioner judges success by the public key file
// existing afterwards, not by the returned error.
type KeyGenerator interface {
	Name() string
	Generate(ctx context.Context, privateKeyPath string) error
}

// generatorPicker is implemented by generators that delegate to another one.
type generatorPicker interface {
	Pick(ctx context.Context) KeyGenerator
}

// ExecGenerator runs ssh-keygen.
type ExecGenerator struct {
	Inspector probe.Inspector
	// Binary is the ssh-keygen path; "ssh-keygen" when empty.
	Binary string
}

func (ExecGenerator) Name() string { return "ssh-keygen" }

func (g ExecGenerator) Generate(ctx context.Context, privateKeyPath string) error {
	bin := g.Binary
	if bin == "" {
		bin = "ssh-keygen"
	}
	_, err := g.Inspector.Output(ctx, bin, "-t", "ed25519", "-f", privateKeyPath, "-N", "", "-q")
	return err
}

// AutoGenerator prefers ssh-keygen and falls back to NativeGenerator when
// process execution is disabled or the binary cannot be found.
type AutoGenerator struct {
	Prober    *probe.Prober
	Inspector probe.Inspector
	Comment   string
}

func (g AutoGenerator) Name() string { return "auto" }

func (g AutoGenerator) Generate(ctx context.Context, privateKeyPath string) error {
	return g.Pick(ctx).Generate(ctx, privateKeyPath)
}

// Pick returns the generator Generate would use right now.
func (g AutoGenerator) Pick(ctx context.Context) KeyGenerator {
	if g.Prober.CapabilityEnabled(probe.CapabilityExec) {
		if path := g.Prober.BinaryPath(ctx, "ssh-keygen"); path != "" {
			return ExecGenerator{Inspector: g.Inspector, Binary: path}
		}
	}
	return NativeGenerator{Comment: g.Comment}
}

package probe

import (
	"context"
	"os"
	"os/exec"
	"os/user"
	"runtime"
	"strings"
)

// Capability names understood by HasCapability and the deny-list.
const (
	CapabilityFetch = "fetch" // outbound HTTP requests
	CapabilityExec  = "exec"  // spawning external processes
	CapabilityShell = "shell" // helper commands such as whoami and which
)

// Inspector is the seam between the prober and the operating system.
type Inspector interface {
	Getenv(key string) string
	// UserHome returns the account database home directory of the process user.
	UserHome() string
	// Output runs an external command and returns its stdout.
	Output(ctx context.Context, name string, args ...string) (string, error)
	IsFile(path string) bool
	IsExecutable(path string) bool
	IsWritableDir(path string) bool
	HasCapability(name string) bool
}

// OSInspector implements Inspector against the real host.
type OSInspector struct{}

func (OSInspector) Getenv(key string) string {
	return os.Getenv(key)
}

func (OSInspector) UserHome() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.HomeDir
}

// Output runs name with args directly, without a shell, so arguments are
// never interpreted.
func (OSInspector) Output(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return string(out), err
}

func (OSInspector) IsFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func (OSInspector) IsExecutable(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular() && fi.Mode().Perm()&0o111 != 0
}

// IsWritableDir probes by creating and removing a temporary file.
func (OSInspector) IsWritableDir(path string) bool {
	f, err := os.CreateTemp(path, ".probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

func (o OSInspector) HasCapability(name string) bool {
	switch name {
	case CapabilityFetch:
		return true
	case CapabilityExec:
		return runtime.GOOS != "js" && runtime.GOOS != "wasip1"
	case CapabilityShell:
		return o.HasCapability(CapabilityExec) && o.IsExecutable("/bin/sh")
	default:
		return false
	}
}

// ParseDenyList splits a comma separated deny-list, trimming entries and
// dropping empty ones.
func ParseDenyList(s string) map[string]bool {
	denied := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			denied[p] = true
		}
	}
	return denied
}

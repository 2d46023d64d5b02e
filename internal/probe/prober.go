// Package probe inspects the host the installer runs on: where the invoking
// user's home directory is, which capabilities are usable and which external
// binaries can be found. Every probe degrades to a best-effort answer instead
// of failing.
package probe

import (
	"context"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

// KnownBinaryDirs are searched, in order, when `which` is unavailable or finds
// nothing. The list matches the paths the deploy script itself searches on
// cPanel hosts.
var KnownBinaryDirs = []string{
	"/usr/local/cpanel/3rdparty/lib/path-bin",
	"/usr/local/bin",
	"/usr/bin",
	"/opt/cpanel/ea-git-core/bin",
	"/usr/local/cpanel/3rdparty/bin",
}

var homePathRegex = regexp.MustCompile(`^/home/([^/]+)`)

// Options configures a Prober.
type Options struct {
	// InstallDir is the directory the installer serves from and writes into.
	InstallDir string
	// HomeOverride, when set, wins over every other home directory source.
	HomeOverride string
	// DisabledCapabilities is the raw comma separated deny-list.
	DisabledCapabilities string
}

// Prober answers environment questions through an Inspector.
type Prober struct {
	insp         Inspector
	installDir   string
	homeOverride string
	denied       map[string]bool
}

func New(insp Inspector, opts Options) *Prober {
	dir := opts.InstallDir
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &Prober{
		insp:         insp,
		installDir:   dir,
		homeOverride: strings.TrimSpace(opts.HomeOverride),
		denied:       ParseDenyList(opts.DisabledCapabilities),
	}
}

// InstallDir returns the absolute installer directory.
func (p *Prober) InstallDir() string {
	return p.installDir
}

// HomeDir resolves the invoking user's home directory. It always returns a
// path, possibly a wrong one; callers validate it.
func (p *Prober) HomeDir(ctx context.Context) string {
	if p.homeOverride != "" {
		return p.homeOverride
	}
	if home := strings.TrimSpace(p.insp.Getenv("HOME")); home != "" {
		return home
	}
	if user := p.currentUser(ctx); user != "" {
		return "/home/" + user
	}
	if m := homePathRegex.FindStringSubmatch(p.installDir); m != nil {
		return "/home/" + m[1]
	}
	// Account database home ranks below the path conventions.
	if home := strings.TrimSpace(p.insp.UserHome()); home != "" {
		return home
	}
	return filepath.Dir(filepath.Dir(p.installDir))
}

func (p *Prober) currentUser(ctx context.Context) string {
	if !p.helpersEnabled() {
		return ""
	}
	out, err := p.insp.Output(ctx, "whoami")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// CapabilityEnabled reports whether a capability exists and is not denied.
func (p *Prober) CapabilityEnabled(name string) bool {
	if !p.insp.HasCapability(name) {
		return false
	}
	return !p.denied[name]
}

// helpersEnabled gates the whoami and which probes. Both need process
// execution as well as the shell helpers.
func (p *Prober) helpersEnabled() bool {
	return p.CapabilityEnabled(CapabilityExec) && p.CapabilityEnabled(CapabilityShell)
}

// BinaryAvailable reports whether command can be found on this host.
func (p *Prober) BinaryAvailable(ctx context.Context, command string) bool {
	return p.BinaryPath(ctx, command) != ""
}

// BinaryPath locates command, first with `which`, then by walking
// KnownBinaryDirs. It returns "" when every probe fails.
func (p *Prober) BinaryPath(ctx context.Context, command string) string {
	if command == "" || strings.ContainsRune(command, '/') {
		return ""
	}

	if p.helpersEnabled() {
		if out, err := p.insp.Output(ctx, "which", command); err == nil {
			if path := strings.TrimSpace(out); path != "" && p.insp.IsFile(path) {
				return path
			}
		}
	}

	for _, dir := range KnownBinaryDirs {
		full := dir + "/" + command
		if p.insp.IsExecutable(full) {
			return full
		}
	}
	return ""
}

// Check is one row of the requirements screen.
type Check struct {
	Key      string
	Name     string
	Note     string
	Passed   bool
	Required bool
}

// Requirements groups the checks the wizard shows on its first step.
type Requirements struct {
	// Installer checks gate the wizard when Required.
	Installer []Check
	// Deployment checks are advisory; the deploy script needs them later.
	Deployment []Check
}

// AllRequiredPassed reports whether every required installer check passed.
func (r Requirements) AllRequiredPassed() bool {
	for _, c := range r.Installer {
		if c.Required && !c.Passed {
			return false
		}
	}
	return true
}

// DeploymentReady reports whether every deployment check passed.
func (r Requirements) DeploymentReady() bool {
	for _, c := range r.Deployment {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Requirements evaluates the installer and deployment checks.
func (p *Prober) Requirements(ctx context.Context) Requirements {
	return Requirements{
		Installer: []Check{
			{Key: CapabilityFetch, Name: "Outbound HTTP fetch", Passed: p.CapabilityEnabled(CapabilityFetch), Required: true},
			{Key: CapabilityExec, Name: "External process execution", Passed: p.CapabilityEnabled(CapabilityExec), Note: "Needed for deploy script to run"},
			{Key: CapabilityShell, Name: "Shell helper commands", Passed: p.CapabilityEnabled(CapabilityShell), Note: "Used to detect the current user and locate binaries"},
		},
		Deployment: []Check{
			{Key: "git", Name: "Git binary", Passed: p.BinaryAvailable(ctx, "git"), Note: "Required by deploy script to clone/fetch repository"},
			{Key: "rsync", Name: "rsync binary", Passed: p.BinaryAvailable(ctx, "rsync"), Note: "Required by deploy script to sync files"},
			{Key: "ssh-keygen", Name: "ssh-keygen binary", Passed: p.BinaryAvailable(ctx, "ssh-keygen"), Note: "Used to generate the deploy key; a built-in generator is used when missing"},
		},
	}
}

// Diagnostics is a snapshot of the environment for troubleshooting.
type Diagnostics struct {
	GoVersion          string            `json:"go_version"`
	Platform           string            `json:"platform"`
	InstallDir         string            `json:"install_dir"`
	InstallDirWritable bool              `json:"install_dir_writable"`
	EnvHome            string            `json:"env_home"`
	AccountHome        string            `json:"account_home"`
	ResolvedHome       string            `json:"resolved_home"`
	CurrentUser        string            `json:"current_user"`
	Capabilities       map[string]bool   `json:"capabilities"`
	Binaries           map[string]string `json:"binaries"`
}

// DiagnosticBinaries are the binaries reported by Diagnostics.
var DiagnosticBinaries = []string{"git", "rsync", "ssh-keygen"}

// Diagnostics collects an environment report.
func (p *Prober) Diagnostics(ctx context.Context) Diagnostics {
	d := Diagnostics{
		GoVersion:          runtime.Version(),
		Platform:           runtime.GOOS + "/" + runtime.GOARCH,
		InstallDir:         p.installDir,
		InstallDirWritable: p.insp.IsWritableDir(p.installDir),
		EnvHome:            p.insp.Getenv("HOME"),
		AccountHome:        p.insp.UserHome(),
		ResolvedHome:       p.HomeDir(ctx),
		CurrentUser:        p.currentUser(ctx),
		Capabilities:       make(map[string]bool),
		Binaries:           make(map[string]string),
	}
	for _, c := range []string{CapabilityFetch, CapabilityExec, CapabilityShell} {
		d.Capabilities[c] = p.CapabilityEnabled(c)
	}
	for _, b := range DiagnosticBinaries {
		d.Binaries[b] = p.BinaryPath(ctx, b)
	}
	return d
}

package sshkey

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// IdentityStatus describes whether ~/.ssh/config points github.com at the
// deploy key. Git over SSH only offers that key when it does.
type IdentityStatus struct {
	ConfigPath   string
	Configured   bool
	IdentityFile string // as resolved for github.com, "" when unset
	Snippet      string // block to add when not Configured
}

// GitHubIdentity inspects home/.ssh/config. A missing or unparsable config
// simply reports not configured.
func GitHubIdentity(home string) IdentityStatus {
	paths := PathsFor(home)
	st := IdentityStatus{
		ConfigPath: filepath.Join(paths.SSHDir, "config"),
		Snippet:    identitySnippet(paths.PrivateKeyPath),
	}

	content, err := readSSHConfig(st.ConfigPath)
	if err != nil {
		return st
	}
	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return st
	}

	identity, _ := cfg.Get("github.com", "IdentityFile")
	if identity == "" {
		return st
	}
	st.IdentityFile = expandHome(identity, home)
	st.Configured = filepath.Clean(st.IdentityFile) == paths.PrivateKeyPath
	return st
}

func identitySnippet(keyPath string) string {
	return "Host github.com\n" +
		"    HostName github.com\n" +
		"    User git\n" +
		"    IdentityFile " + keyPath + "\n" +
		"    IdentitiesOnly yes\n"
}

// readSSHConfig returns the config up to its first Match block, which the
// decoder cannot handle.
func readSSHConfig(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		fields := strings.Fields(line)
		if len(fields) > 0 && strings.EqualFold(fields[0], "Match") {
			break
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return out.Bytes(), sc.Err()
}

func expandHome(p, home string) string {
	switch {
	case p == "~":
		return home
	case strings.HasPrefix(p, "~/"):
		return filepath.Join(home, p[2:])
	case strings.HasPrefix(p, "%d/"):
		return filepath.Join(home, p[3:])
	}
	return p
}

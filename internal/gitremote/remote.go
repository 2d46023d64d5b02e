// Package gitremote canonicalizes repository addresses into the SSH form the
// deploy key authenticates against.
package gitremote

import (
	"regexp"
	"strings"
)

var (
	sshPrefixRegex = regexp.MustCompile(`^git@github\.com:`)
	httpsRegex     = regexp.MustCompile(`^https?://(?:www\.)?github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)
	bareHostRegex  = regexp.MustCompile(`^(?:www\.)?github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)
	sshRemoteRegex = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+:[^/\s]+/[^/\s]+\.git$`)
)

// ToSSHRemote converts a GitHub repository URL into
// git@github.com:<owner>/<repo>.git. Input it cannot parse is returned
// trimmed but otherwise unchanged.
func ToSSHRemote(input string) string {
	url := strings.TrimSpace(input)
	url = strings.TrimSuffix(url, "/")

	if sshPrefixRegex.MatchString(url) {
		return strings.TrimSuffix(url, ".git") + ".git"
	}

	if m := httpsRegex.FindStringSubmatch(url); m != nil {
		return sshRemote(m[1], m[2])
	}
	if m := bareHostRegex.FindStringSubmatch(url); m != nil {
		return sshRemote(m[1], m[2])
	}

	return url
}

func sshRemote(owner, repo string) string {
	return "git@github.com:" + owner + "/" + strings.TrimSuffix(repo, ".git") + ".git"
}

// IsSSHRemote reports whether s has the user@host:owner/repo.git shape.
func IsSSHRemote(s string) bool {
	return sshRemoteRegex.MatchString(s)
}

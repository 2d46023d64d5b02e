// Package deployconf reads and writes deploy-config.php, the PHP file of
// define() constants consumed by the deploy script.
//
// The file is treated as text. Both the state check and the renderer work
// against its documented schema and never parse PHP.
package deployconf

import (
	"os"
	"regexp"
)

// PlaceholderToken is the secret the deploy script ships with. A config still
// carrying it is not considered set up.
const PlaceholderToken = "BetterChangeMeNowOrSufferTheConsequences"

var (
	secretTokenDefine = regexp.MustCompile(`define\s*\(\s*['"]SECRET_ACCESS_TOKEN['"]\s*,\s*['"]([^'"]+)['"]\s*\)`)
	repositoryDefine  = regexp.MustCompile(`define\s*\(\s*['"]REMOTE_REPOSITORY['"]`)
	targetDirDefine   = regexp.MustCompile(`define\s*\(\s*['"]TARGET_DIR['"]`)
)

// IsFullyConfigured reports whether the file at path defines a real secret
// access token together with REMOTE_REPOSITORY and TARGET_DIR. A missing or
// unreadable file is not configured.
func IsFullyConfigured(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return IsConfiguredContent(string(data))
}

// IsConfiguredContent applies the IsFullyConfigured rules to file content.
func IsConfiguredContent(content string) bool {
	m := secretTokenDefine.FindStringSubmatch(content)
	if m == nil || m[1] == "" || m[1] == PlaceholderToken {
		return false
	}
	return repositoryDefine.MatchString(content) && targetDirDefine.MatchString(content)
}

package crypto

import (
	"crypto/md5"
	"encoding/hex"
)

// RepositoryHash returns the lowercase hex MD5 of a repository address. The
// deploy script names its staging directory /tmp/spgd-<hash>/ after it, so
// the digest must stay MD5 to match.
func RepositoryHash(remote string) string {
	sum := md5.Sum([]byte(remote))
	return hex.EncodeToString(sum[:])
}

// StagingDir returns the directory the deploy script clones remote into.
func StagingDir(remote string) string {
	return "/tmp/spgd-" + RepositoryHash(remote) + "/"
}

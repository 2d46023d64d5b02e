package deployconf

import (
	"fmt"
	"strings"

	"github.com/edvin/deploy-installer/internal/crypto"
	"github.com/edvin/deploy-installer/internal/gitremote"
)

// phpEscaper matches PHP's addslashes for values placed inside single quotes.
var phpEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	"\x00", `\0`,
)

// Render returns the complete deploy-config.php for v. Only the four user
// values vary; every other constant is fixed policy.
func Render(v Values) string {
	var b strings.Builder

	define := func(comment, name, value string) {
		for _, line := range strings.Split(comment, "\n") {
			b.WriteString("// " + line + "\n")
		}
		b.WriteString(fmt.Sprintf("define('%s', %s);\n\n", name, value))
	}
	quote := func(s string) string {
		return "'" + phpEscaper.Replace(s) + "'"
	}

	b.WriteString("<?php\n")
	b.WriteString("/**\n")
	b.WriteString(" * Deploy Configuration\n")
	b.WriteString(" *\n")
	b.WriteString(" * This file contains the deployment configuration for simple-php-git-deploy\n")
	b.WriteString(" * Generated by deploy-installer\n")
	b.WriteString(" */\n\n")

	define("Protect the script from unauthorized access by using a secret access token.\n"+
		"If it's not present in the access URL as a GET variable named `sat`\n"+
		"e.g. deploy.php?sat=YourSecretToken the script is not going to deploy.",
		"SECRET_ACCESS_TOKEN", quote(v.SecretToken))
	define("The address of the remote Git repository that contains the code that's being deployed.\n"+
		"If the repository is private, you'll need to use the SSH address.",
		"REMOTE_REPOSITORY", quote(v.RemoteRepository))
	define("The branch that's being deployed.\n"+
		"Must be present in the remote repository.",
		"BRANCH", quote(v.Branch))
	define("The location that the code is going to be deployed to.\n"+
		"Don't forget the trailing slash!",
		"TARGET_DIR", quote(v.TargetDir))
	define("Whether to delete the files that are not in the repository but are on the\n"+
		"local (server) machine.\n"+
		"!!! WARNING !!! This can lead to a serious loss of data if you're not careful.\n"+
		"All files that are not in the repository are going to be deleted,\n"+
		"except the ones defined in EXCLUDE section.",
		"DELETE_FILES", "false")
	define("The directories and files that are to be excluded when updating the code.\n"+
		"Normally, these are the directories containing files that are not part of\n"+
		"code base, for example user uploads or server-specific configuration files.\n"+
		"Use rsync exclude pattern syntax for each element.",
		"EXCLUDE", "serialize(array(\n\t'.git',\n))")
	define("Temporary directory we'll use to stage the code before the update.\n"+
		"If it already exists, script assumes that it contains an already cloned copy\n"+
		"of the repository with the correct remote origin and only fetches changes instead\n"+
		"of cloning the entire thing.",
		"TMP_DIR", "'/tmp/spgd-' . md5(REMOTE_REPOSITORY) . '/'")
	define("Whether to remove the TMP_DIR after the deployment.\n"+
		"It's useful NOT to clean up in order to only fetch changes on the next deployment.",
		"CLEAN_UP", "true")
	define("Output the version of the deployed code.",
		"VERSION_FILE", "TMP_DIR . 'VERSION'")
	define("Time limit for each command.",
		"TIME_LIMIT", "30")
	define("OPTIONAL: Backup the TARGET_DIR into BACKUP_DIR before deployment.",
		"BACKUP_DIR", "false")
	define("OPTIONAL: Whether to invoke composer after the repository is cloned or changes are fetched.",
		"USE_COMPOSER", "false")
	define("OPTIONAL: The options that the composer is going to use.",
		"COMPOSER_OPTIONS", "'--no-dev'")
	define("OPTIONAL: The COMPOSER_HOME environment variable is needed only if the script is\n"+
		"executed by a system user that has no HOME defined, e.g. `www-data`.",
		"COMPOSER_HOME", "false")
	define("OPTIONAL: Email address to be notified on deployment failure.",
		"EMAIL_ON_ERROR", "false")

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Summary is the derived information shown after a config is written.
type Summary struct {
	Values
	// StagingDir is TMP_DIR as the deploy script will compute it.
	StagingDir  string `json:"staging_dir"`
	VersionFile string `json:"version_file"`
	// SSHRemote is false when the repository could not be turned into an
	// SSH remote, in which case the deploy key will not be used.
	SSHRemote bool `json:"ssh_remote"`
}

// Summarize derives the staging paths for v.
func Summarize(v Values) Summary {
	dir := crypto.StagingDir(v.RemoteRepository)
	return Summary{
		Values:      v,
		StagingDir:  dir,
		VersionFile: dir + "VERSION",
		SSHRemote:   gitremote.IsSSHRemote(v.RemoteRepository),
	}
}

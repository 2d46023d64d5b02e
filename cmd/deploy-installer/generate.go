package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edvin/deploy-installer/internal/deployconf"
	"github.com/edvin/deploy-installer/internal/platform"
	"github.com/edvin/deploy-installer/internal/setup"
	"github.com/edvin/deploy-installer/internal/ui"
)

var (
	answersFlag string
	forceFlag   bool
	initFlag    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write deploy-config.php from an answers file",
	Long: `Write deploy-config.php without the browser, from a YAML answers file
holding the configuration step's fields.

Examples:
  deploy-installer generate --init -f answers.yaml   # write a skeleton
  deploy-installer generate -f answers.yaml
  deploy-installer generate -f answers.yaml --force  # replace a valid config`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&answersFlag, "file", "f", "answers.yaml", "answers file")
	generateCmd.Flags().BoolVar(&forceFlag, "force", false, "overwrite an existing valid configuration")
	generateCmd.Flags().BoolVar(&initFlag, "init", false, "write a skeleton answers file with a fresh token and exit")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if initFlag {
		skeleton := deployconf.Input{
			SecretToken: platform.NewSecretToken(platform.DefaultTokenLength),
			Branch:      deployconf.DefaultBranch,
			TargetDir:   strings.TrimRight(a.prober.InstallDir(), "/") + "/",
		}
		if err := setup.WriteAnswers(skeleton, answersFlag); err != nil {
			return err
		}
		ui.Success(out, "Wrote "+answersFlag+"; fill in repo_url and run generate again")
		return nil
	}

	res, err := setup.GenerateFromManifest(answersFlag, a.configPath(), forceFlag, out)
	if err != nil {
		return err
	}
	ui.Success(out, res.Message())

	s := deployconf.Summarize(res.Values)
	ui.Muted(out, "Repository: "+s.RemoteRepository)
	ui.Muted(out, "Branch:     "+s.Branch)
	ui.Muted(out, "Target:     "+s.TargetDir)
	ui.Muted(out, "Staging:    "+s.StagingDir)
	if !s.SSHRemote {
		ui.Error(out, "Repository is not an SSH remote; the deploy key will not be used")
	}
	fmt.Fprintln(out)
	endpoint := "https://<your-domain>/" + a.cfg.DeployScriptName
	fmt.Fprintf(out, "Webhook payload URL: %s\n", platform.WebhookURL(endpoint, res.Values.SecretToken))
	return nil
}

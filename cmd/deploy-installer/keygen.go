package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edvin/deploy-installer/internal/sshkey"
	"github.com/edvin/deploy-installer/internal/ui"
)

var homeFlag string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create the deploy key and register it in authorized_keys",
	Long: `Create ~/.ssh/deploy_key when it does not exist and make sure its public
key is in authorized_keys. An existing key is never replaced.`,
	RunE: runKeygen,
}

func init() {
	keygenCmd.Flags().StringVar(&homeFlag, "home", "", "home directory (default: detected)")
}

func runKeygen(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	home := homeFlag
	if home == "" {
		home = a.prober.HomeDir(cmd.Context())
	}

	res := a.keys.EnsureDeployKey(cmd.Context(), home)
	for _, m := range res.Messages {
		ui.Success(out, m)
	}
	for _, e := range res.Errors {
		ui.Error(out, e)
	}
	if !res.OK() {
		return errors.New("deploy key provisioning failed")
	}

	if res.PublicKey != "" {
		fmt.Fprintln(out)
		ui.Header(out, "Add this deploy key to GitHub (read-only):")
		fmt.Fprintln(out, res.PublicKey)
		ui.Muted(out, res.Fingerprint)
	}

	if id := sshkey.GitHubIdentity(home); !id.Configured {
		fmt.Fprintln(out)
		ui.Header(out, "Add to "+id.ConfigPath+" so git uses the key:")
		fmt.Fprint(out, id.Snippet)
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edvin/deploy-installer/internal/config"
	"github.com/edvin/deploy-installer/internal/fetch"
	"github.com/edvin/deploy-installer/internal/logging"
	"github.com/edvin/deploy-installer/internal/probe"
	"github.com/edvin/deploy-installer/internal/setup"
	"github.com/edvin/deploy-installer/internal/sshkey"
)

var dirFlag string

var rootCmd = &cobra.Command{
	Use:   "deploy-installer",
	Short: "Browser setup wizard for the GitHub deploy script",
	Long: `deploy-installer sets up push-to-deploy from GitHub on shared hosting.

It downloads the deploy script, creates an SSH deploy key and writes
deploy-config.php. Without a subcommand it serves the setup wizard.

Examples:
  deploy-installer
  deploy-installer serve --addr :8400 --dir ~/public_html
  deploy-installer generate -f answers.yaml
  deploy-installer check`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", "", "install directory (overrides INSTALL_DIR)")
	addServeFlags(rootCmd)
	rootCmd.AddCommand(serveCmd, generateCmd, keygenCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the wiring shared by every command.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	prober  *probe.Prober
	keys    *sshkey.Provisioner
	fetcher *fetch.Fetcher
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dirFlag != "" {
		cfg.InstallDir = dirFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewLogger(cfg)
	insp := probe.OSInspector{}
	prober := probe.New(insp, probe.Options{
		InstallDir:           cfg.InstallDir,
		HomeOverride:         cfg.HomeOverride,
		DisabledCapabilities: cfg.DisabledCapabilities,
	})
	gen := sshkey.AutoGenerator{Prober: prober, Inspector: insp, Comment: "deploy-installer"}

	return &app{
		cfg:    cfg,
		logger: logger,
		prober: prober,
		keys:   sshkey.NewProvisioner(gen, logger),
		fetcher: fetch.New(fetch.Options{
			RawURL:  cfg.DeployScriptURL,
			APIURL:  cfg.DeployScriptAPIURL,
			Token:   cfg.GitHubToken,
			Timeout: cfg.FetchTimeout,
		}, logger),
	}, nil
}

func (a *app) wizard() *setup.Wizard {
	return setup.NewWizard(setup.Options{
		Prober:         a.prober,
		Provisioner:    a.keys,
		Fetcher:        a.fetcher,
		ConfigFilename: a.cfg.ConfigFilename,
		ScriptName:     a.cfg.DeployScriptName,
		Logger:         a.logger,
	})
}

func (a *app) configPath() string {
	return filepath.Join(a.prober.InstallDir(), a.cfg.ConfigFilename)
}

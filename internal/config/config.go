package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	DefaultDeployScriptURL    = "https://raw.githubusercontent.com/Serviworldwide/deploy-installer/main/deploy.php"
	DefaultDeployScriptAPIURL = "https://api.github.com/repos/Serviworldwide/deploy-installer/contents/deploy.php?ref=main"
)

type Config struct {
	HTTPListenAddr string `envconfig:"HTTP_LISTEN_ADDR" default:":8400"`
	// InstallDir is where deploy.php and deploy-config.php are written.
	InstallDir string `envconfig:"INSTALL_DIR" default:"."`
	// HomeOverride takes precedence over every other home directory source.
	HomeOverride string `envconfig:"INSTALLER_HOME"`
	GitHubToken  string `envconfig:"GITHUB_TOKEN"`
	// DisabledCapabilities is a comma separated deny-list, e.g. "exec, shell".
	DisabledCapabilities string `envconfig:"INSTALLER_DISABLED_CAPABILITIES"`

	DeployScriptURL    string        `envconfig:"DEPLOY_SCRIPT_URL"`
	DeployScriptAPIURL string        `envconfig:"DEPLOY_SCRIPT_API_URL"`
	DeployScriptName   string        `envconfig:"DEPLOY_SCRIPT_NAME" default:"deploy.php"`
	ConfigFilename     string        `envconfig:"CONFIG_FILENAME" default:"deploy-config.php"`
	FetchTimeout       time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if cfg.DeployScriptURL == "" {
		cfg.DeployScriptURL = DefaultDeployScriptURL
	}
	if cfg.DeployScriptAPIURL == "" {
		cfg.DeployScriptAPIURL = DefaultDeployScriptAPIURL
	}
	return &cfg, nil
}

// Validate checks that the settings needed to serve the wizard are present.
func (c *Config) Validate() error {
	var missing []string
	if c.HTTPListenAddr == "" {
		missing = append(missing, "HTTP_LISTEN_ADDR")
	}
	if c.InstallDir == "" {
		missing = append(missing, "INSTALL_DIR")
	}
	if c.DeployScriptName == "" {
		missing = append(missing, "DEPLOY_SCRIPT_NAME")
	}
	if c.ConfigFilename == "" {
		missing = append(missing, "CONFIG_FILENAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if strings.ContainsAny(c.DeployScriptName, `/\`) || strings.ContainsAny(c.ConfigFilename, `/\`) {
		return fmt.Errorf("DEPLOY_SCRIPT_NAME and CONFIG_FILENAME must be plain file names")
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

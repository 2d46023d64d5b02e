package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear any env vars that might interfere with defaults.
	for _, k := range []string{
		"HTTP_LISTEN_ADDR", "INSTALL_DIR", "INSTALLER_HOME", "GITHUB_TOKEN",
		"INSTALLER_DISABLED_CAPABILITIES", "DEPLOY_SCRIPT_URL", "DEPLOY_SCRIPT_API_URL",
		"DEPLOY_SCRIPT_NAME", "CONFIG_FILENAME", "FETCH_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		os.Unsetenv(k)
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":8400", cfg.HTTPListenAddr)
	assert.Equal(t, ".", cfg.InstallDir)
	assert.Equal(t, "", cfg.HomeOverride)
	assert.Equal(t, "", cfg.GitHubToken)
	assert.Equal(t, DefaultDeployScriptURL, cfg.DeployScriptURL)
	assert.Equal(t, DefaultDeployScriptAPIURL, cfg.DeployScriptAPIURL)
	assert.Equal(t, "deploy.php", cfg.DeployScriptName)
	assert.Equal(t, "deploy-config.php", cfg.ConfigFilename)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_AllEnvVars(t *testing.T) {
	t.Setenv("HTTP_LISTEN_ADDR", ":9000")
	t.Setenv("INSTALL_DIR", "/home/acme/public_html/tool")
	t.Setenv("INSTALLER_HOME", "/home/acme")
	t.Setenv("GITHUB_TOKEN", "ghp_example")
	t.Setenv("INSTALLER_DISABLED_CAPABILITIES", "exec, shell")
	t.Setenv("DEPLOY_SCRIPT_URL", "https://example.com/deploy.php")
	t.Setenv("DEPLOY_SCRIPT_API_URL", "https://api.example.com/deploy.php")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPListenAddr)
	assert.Equal(t, "/home/acme/public_html/tool", cfg.InstallDir)
	assert.Equal(t, "/home/acme", cfg.HomeOverride)
	assert.Equal(t, "ghp_example", cfg.GitHubToken)
	assert.Equal(t, "exec, shell", cfg.DisabledCapabilities)
	assert.Equal(t, "https://example.com/deploy.php", cfg.DeployScriptURL)
	assert.Equal(t, "https://api.example.com/deploy.php", cfg.DeployScriptAPIURL)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "process env")
}

func TestValidate_MissingFields(t *testing.T) {
	cfg := &Config{LogFormat: "json"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_LISTEN_ADDR")
	assert.Contains(t, err.Error(), "INSTALL_DIR")
	assert.Contains(t, err.Error(), "DEPLOY_SCRIPT_NAME")
	assert.Contains(t, err.Error(), "CONFIG_FILENAME")
}

func TestValidate_FileNamesWithSeparators(t *testing.T) {
	cfg := &Config{
		HTTPListenAddr:   ":8400",
		InstallDir:       ".",
		DeployScriptName: "../deploy.php",
		ConfigFilename:   "deploy-config.php",
		LogFormat:        "json",
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plain file names")
}

func TestValidate_BadLogFormat(t *testing.T) {
	cfg := &Config{
		HTTPListenAddr:   ":8400",
		InstallDir:       ".",
		DeployScriptName: "deploy.php",
		ConfigFilename:   "deploy-config.php",
		LogFormat:        "xml",
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_FORMAT")
}

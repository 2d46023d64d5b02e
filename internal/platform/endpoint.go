package platform

import (
	"net/url"
	"path"
)

// DeployEndpoint builds the public URL of the deploy script installed next to
// the page at scriptPath.
// Example: https, example.com, /tools/installer, deploy.php ->
// https://example.com/tools/deploy.php
func DeployEndpoint(scheme, host, scriptPath, scriptName string) string {
	if scheme == "" {
		scheme = "http"
	}
	dir := path.Dir("/" + scriptPath)
	return scheme + "://" + host + path.Join(dir, scriptName)
}

// WebhookURL appends the secret access token to endpoint as the sat query
// parameter. It returns "" when token is empty.
func WebhookURL(endpoint, token string) string {
	if token == "" {
		return ""
	}
	return endpoint + "?sat=" + url.QueryEscape(token)
}

package setup

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/deploy-installer/internal/probe"
)

func newTestServer(t *testing.T) (*Server, *testEnv) {
	t.Helper()
	env := newTestEnv(t, "")
	return NewServer(env.wizard, zerolog.Nop()), env
}

func postForm(t *testing.T, h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_RequirementsPage(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv.Handler(), "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	body := rec.Body.String()
	assert.Contains(t, body, "Server Requirements Check")
	assert.Contains(t, body, "Installer requirements met")
	assert.Contains(t, body, `name="step" value="2"`)
}

func TestServer_FullWizardFlow(t *testing.T) {
	srv, env := newTestServer(t)
	h := srv.Handler()

	rec := postForm(t, h, "/", url.Values{"step": {"2"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "deploy.php downloaded successfully")
	assert.Contains(t, rec.Body.String(), `value="generated-token"`)

	rec = postForm(t, h, "/", url.Values{
		"step":         {"3"},
		"secret_token": {"abc123"},
		"repo_url":     {"https://github.com/acme/widgets"},
		"branch":       {"main"},
		"target_dir":   {"/home/acme/public_html"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Setup Complete")
	assert.Contains(t, body, "git@github.com:acme/widgets.git")
	assert.Contains(t, body, "converted from https://github.com/acme/widgets")
	assert.Contains(t, body, "http://example.com/deploy.php?sat=abc123")
	assert.Contains(t, body, "ssh-ed25519 ")

	data, err := os.ReadFile(filepath.Join(env.installDir, "deploy-config.php"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "define('TARGET_DIR', '/home/acme/public_html/');")

	// Any later request only shows the configured page.
	rec = postForm(t, h, "/", url.Values{"step": {"2"}})
	assert.Contains(t, rec.Body.String(), "Deployment Already Configured")
	assert.Equal(t, 1, env.fetcher.calls)
}

func TestServer_WebhookFromQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv.Handler(), "/?token=xyz")

	assert.Contains(t, rec.Body.String(), "Setup Complete")
	assert.Contains(t, rec.Body.String(), "http://example.com/deploy.php?sat=xyz")
}

func TestServer_InvalidStepShowsRequirements(t *testing.T) {
	srv, env := newTestServer(t)

	rec := postForm(t, srv.Handler(), "/", url.Values{"step": {"abc"}})

	assert.Contains(t, rec.Body.String(), "Server Requirements Check")
	assert.Equal(t, 0, env.fetcher.calls)
}

func TestServer_OversizedFormRejected(t *testing.T) {
	srv, env := newTestServer(t)

	rec := postForm(t, srv.Handler(), "/", url.Values{
		"step":         {"3"},
		"secret_token": {strings.Repeat("a", maxFormBytes)},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoFileExists(t, filepath.Join(env.installDir, "deploy-config.php"))
}

func TestServer_Keygen(t *testing.T) {
	srv, env := newTestServer(t)
	h := srv.Handler()

	rec := get(t, h, "/keygen")
	assert.Contains(t, rec.Body.String(), `value="`+env.home+`"`)

	rec = postForm(t, h, "/keygen", url.Values{"home_dir": {env.home}})
	body := rec.Body.String()
	assert.Contains(t, body, "SSH key pair generated successfully")
	assert.Contains(t, body, "ssh-ed25519 ")
	assert.FileExists(t, filepath.Join(env.home, ".ssh", "deploy_key"))

	rec = postForm(t, h, "/keygen", url.Values{"home_dir": {env.home}})
	assert.Contains(t, rec.Body.String(), "SSH key already exists at: "+filepath.Join(env.home, ".ssh", "deploy_key"))
}

func TestServer_KeygenRequiresHome(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postForm(t, srv.Handler(), "/keygen", url.Values{"home_dir": {"  "}})

	assert.Contains(t, rec.Body.String(), "Home directory is required")
}

func TestServer_DiagnosticsJSON(t *testing.T) {
	srv, env := newTestServer(t)

	rec := get(t, srv.Handler(), "/diagnostics?format=json")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var d probe.Diagnostics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, env.home, d.ResolvedHome)
	assert.Equal(t, env.home, d.EnvHome)
}

func TestServer_DiagnosticsPage(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv.Handler(), "/diagnostics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestServer_Status(t *testing.T) {
	srv, env := newTestServer(t)
	h := srv.Handler()

	var st Status
	rec := get(t, h, "/api/status")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.Configured)
	assert.True(t, st.InstallerReady)
	assert.False(t, st.DeployReady)
	assert.Equal(t, env.home, st.HomeDir)
	assert.Empty(t, st.PublicKey)

	postForm(t, h, "/", url.Values{"step": {"2"}})
	postForm(t, h, "/", url.Values{
		"step":         {"3"},
		"secret_token": {"abc123"},
		"repo_url":     {"github.com/acme/widgets"},
		"target_dir":   {"/srv/www"},
	})

	rec = get(t, h, "/api/status")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Configured)
	assert.NotEmpty(t, st.PublicKey)
	assert.True(t, strings.HasPrefix(st.Fingerprint, "SHA256:"))
}

func TestServer_Healthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv.Handler(), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestNewRequest(t *testing.T) {
	form := url.Values{
		"step":         {" 3 "},
		"secret_token": {"tok"},
		"repo_url":     {"github.com/acme/widgets"},
		"branch":       {"dev"},
		"target_dir":   {"/srv"},
	}
	r := httptest.NewRequest(http.MethodPost, "/tools/?token=ignored", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Forwarded-Proto", "HTTPS")
	require.NoError(t, r.ParseForm())

	req := NewRequest(r)

	assert.True(t, req.IsPost())
	assert.Equal(t, StepConfigure, req.Step)
	assert.Equal(t, "https", req.Scheme)
	assert.Equal(t, "example.com", req.Host)
	assert.Equal(t, "/tools/", req.ScriptPath)
	assert.Equal(t, "tok", req.Form.SecretToken)
	assert.Equal(t, "dev", req.Form.Branch)
}

func TestParseStep(t *testing.T) {
	cases := map[string]int{
		"1": 1, "2": 2, "3": 3, "4": 4,
		"0": 0, "5": 0, "-1": 0, "": 0, "two": 0, "2.5": 0,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseStep(in), "parseStep(%q)", in)
	}
}

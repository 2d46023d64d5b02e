package setup

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/edvin/deploy-installer/internal/deployconf"
)

// Steps of the wizard.
const (
	StepRequirements = 1
	StepDownload     = 2
	StepConfigure    = 3
	StepResults      = 4
)

// maxFormBytes caps a wizard form submission.
const maxFormBytes = 64 << 10

// Request is everything the wizard reads from an HTTP request, captured once.
// The wizard never sees the *http.Request itself.
type Request struct {
	Method string
	// Step is the submitted step, or 0 when absent or not a number in 1..4.
	Step int
	Form deployconf.Input

	Scheme     string
	Host       string
	ScriptPath string
	// QueryToken is ?token= on a GET, used to redisplay the webhook URL.
	QueryToken string
}

// IsPost reports whether the request submits a form.
func (r Request) IsPost() bool {
	return r.Method == http.MethodPost
}

// NewRequest builds a Request from r. The form body must already be parsed.
func NewRequest(r *http.Request) Request {
	req := Request{
		Method:     r.Method,
		Scheme:     requestScheme(r),
		Host:       r.Host,
		ScriptPath: r.URL.Path,
		QueryToken: r.URL.Query().Get("token"),
	}
	if r.Method == http.MethodPost {
		req.Step = parseStep(r.PostFormValue("step"))
		req.Form = deployconf.Input{
			SecretToken: r.PostFormValue("secret_token"),
			RepoURL:     r.PostFormValue("repo_url"),
			Branch:      r.PostFormValue("branch"),
			TargetDir:   r.PostFormValue("target_dir"),
		}
	}
	return req
}

func parseStep(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < StepRequirements || n > StepResults {
		return 0
	}
	return n
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return "https"
	}
	return "http"
}

package setup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/edvin/deploy-installer/internal/deployconf"
	"github.com/edvin/deploy-installer/internal/fetch"
	"github.com/edvin/deploy-installer/internal/metrics"
	"github.com/edvin/deploy-installer/internal/platform"
	"github.com/edvin/deploy-installer/internal/probe"
	"github.com/edvin/deploy-installer/internal/sshkey"
)

// ScriptFetcher downloads the deploy script.
type ScriptFetcher interface {
	Fetch(ctx context.Context) (*fetch.Result, error)
}

// Options wires a Wizard.
type Options struct {
	Prober      *probe.Prober
	Provisioner *sshkey.Provisioner
	Fetcher     ScriptFetcher
	// ConfigFilename and ScriptName are created in the prober's install dir.
	ConfigFilename string
	ScriptName     string
	Logger         zerolog.Logger
	// NewToken prefills the secret token field. Defaults to a 16 character
	// random token.
	NewToken func() string
}

// Wizard is the four step setup controller. Progress between requests is
// never stored: the submitted step drives each request and a fully written
// config file ends the wizard for good.
type Wizard struct {
	// mu serialises the steps that write files. Requests from other
	// processes are not covered.
	mu sync.Mutex

	prober         *probe.Prober
	provisioner    *sshkey.Provisioner
	fetcher        ScriptFetcher
	configFilename string
	scriptName     string
	configPath     string
	scriptPath     string
	logger         zerolog.Logger
	newToken       func() string
}

func NewWizard(opts Options) *Wizard {
	if opts.NewToken == nil {
		opts.NewToken = func() string { return platform.NewSecretToken(platform.DefaultTokenLength) }
	}
	dir := opts.Prober.InstallDir()
	return &Wizard{
		prober:         opts.Prober,
		provisioner:    opts.Provisioner,
		fetcher:        opts.Fetcher,
		configFilename: opts.ConfigFilename,
		scriptName:     opts.ScriptName,
		configPath:     filepath.Join(dir, opts.ConfigFilename),
		scriptPath:     filepath.Join(dir, opts.ScriptName),
		logger:         opts.Logger,
		newToken:       opts.NewToken,
	}
}

// ConfigPath returns the deploy config location.
func (w *Wizard) ConfigPath() string {
	return w.configPath
}

// View is the outcome of one wizard request, ready to render.
type View struct {
	// Configured means a valid config already exists and nothing else is set.
	Configured bool
	Step       int
	Errors     []string
	Success    []string

	InstallDir     string
	ConfigPath     string
	ConfigFilename string
	ScriptName     string

	// Step 1.
	Requirements probe.Requirements

	// Step 3 form values.
	Form deployconf.Input

	// Step 4.
	HomeDir        string
	PublicKey      string
	Fingerprint    string
	SecretToken    string
	DeployEndpoint string
	WebhookURL     string
	RepoInput      string
	Summary        *deployconf.Summary
	Identity       *sshkey.IdentityStatus
}

// RepoConverted reports whether the submitted repository address was
// rewritten into SSH form.
func (v View) RepoConverted() bool {
	return v.Summary != nil && v.RepoInput != "" && v.RepoInput != v.Summary.RemoteRepository
}

// Handle runs one wizard request.
func (w *Wizard) Handle(ctx context.Context, req Request) View {
	view := View{
		InstallDir:     w.prober.InstallDir(),
		ConfigPath:     w.configPath,
		ConfigFilename: w.configFilename,
		ScriptName:     w.scriptName,
	}
	if deployconf.IsFullyConfigured(w.configPath) {
		view.Configured = true
		return view
	}

	view.Step = StepRequirements
	switch {
	case req.IsPost() && req.Step != 0:
		view.Step = req.Step
	case !req.IsPost() && req.QueryToken != "":
		view.Step = StepResults
	}

	if req.IsPost() {
		switch view.Step {
		case StepDownload:
			w.download(ctx, &view)
		case StepConfigure:
			w.configure(ctx, req, &view)
		}
	}

	switch view.Step {
	case StepRequirements:
		view.Requirements = w.prober.Requirements(ctx)
	case StepConfigure:
		if !(req.IsPost() && req.Step == StepConfigure) {
			view.Form = deployconf.Input{
				SecretToken: w.newToken(),
				Branch:      deployconf.DefaultBranch,
				TargetDir:   strings.TrimRight(view.InstallDir, "/") + "/",
			}
		}
	case StepResults:
		w.results(ctx, req, &view)
	}
	return view
}

// download is step 2: fetch the deploy script and provision the deploy key.
func (w *Wizard) download(ctx context.Context, view *View) {
	log := w.log(ctx)

	reqs := w.prober.Requirements(ctx)
	if !reqs.AllRequiredPassed() {
		view.Step = StepRequirements
		view.Errors = append(view.Errors, "Missing required components: the installer cannot download files on this server.")
		recordStep(StepDownload, metrics.OutcomeRejected)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.installScript(ctx, view)

	home := w.prober.HomeDir(ctx)
	res := w.provisioner.EnsureDeployKey(ctx, home)
	view.Success = append(view.Success, res.Messages...)
	view.Errors = append(view.Errors, res.Errors...)

	if len(view.Errors) > 0 {
		log.Warn().Strs("errors", view.Errors).Msg("download step failed")
		recordStep(StepDownload, metrics.OutcomeFailed)
		return
	}
	view.Step = StepConfigure
	recordStep(StepDownload, metrics.OutcomeAdvanced)
}

func (w *Wizard) installScript(ctx context.Context, view *View) {
	log := w.log(ctx)

	res, err := w.fetcher.Fetch(ctx)
	if err != nil {
		metrics.DeployScriptFetches.WithLabelValues(metrics.FetchFailed).Inc()
		log.Error().Err(err).Msg("download deploy script")
		view.Errors = append(view.Errors, "Failed to download "+w.scriptName+" - check internet connection")
		return
	}
	metrics.DeployScriptFetches.WithLabelValues(string(res.Source)).Inc()

	_, statErr := os.Stat(w.scriptPath)
	existed := statErr == nil

	if err := os.WriteFile(w.scriptPath, res.Content, 0o644); err != nil {
		log.Error().Err(err).Str("path", w.scriptPath).Msg("write deploy script")
		view.Errors = append(view.Errors, "Failed to write "+w.scriptName+" - check file permissions")
		return
	}
	log.Info().Str("source", string(res.Source)).Int("bytes", len(res.Content)).Msg("deploy script installed")
	if existed {
		view.Success = append(view.Success, w.scriptName+" updated (previous copy was overwritten)")
	} else {
		view.Success = append(view.Success, w.scriptName+" downloaded successfully")
	}
}

// configure is step 3: validate the form and write the config file.
func (w *Wizard) configure(ctx context.Context, req Request, view *View) {
	log := w.log(ctx)
	view.Form = req.Form

	w.mu.Lock()
	defer w.mu.Unlock()

	res, err := deployconf.Write(w.configPath, req.Form)
	var verrs deployconf.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		view.Errors = append(view.Errors, verrs.Messages()...)
		recordStep(StepConfigure, metrics.OutcomeRejected)
		return
	case err != nil:
		log.Error().Err(err).Str("path", w.configPath).Msg("write deploy config")
		view.Errors = append(view.Errors, "Failed to write "+w.configFilename+" - check file permissions")
		recordStep(StepConfigure, metrics.OutcomeFailed)
		return
	}

	log.Info().
		Str("path", res.Path).
		Str("repository", res.Values.RemoteRepository).
		Bool("replaced", res.Replaced).
		Msg("deploy config written")

	summary := deployconf.Summarize(res.Values)
	view.Success = append(view.Success, res.Message())
	view.Step = StepResults
	view.SecretToken = res.Values.SecretToken
	view.Summary = &summary
	view.RepoInput = strings.TrimSpace(req.Form.RepoURL)
	recordStep(StepConfigure, metrics.OutcomeAdvanced)
}

// results is step 4: everything the operator has to paste into GitHub.
func (w *Wizard) results(ctx context.Context, req Request, view *View) {
	token := view.SecretToken
	if token == "" && req.IsPost() {
		token = strings.TrimSpace(req.Form.SecretToken)
	}
	if token == "" {
		token = req.QueryToken
	}
	view.SecretToken = token
	view.DeployEndpoint = platform.DeployEndpoint(req.Scheme, req.Host, req.ScriptPath, w.scriptName)
	view.WebhookURL = platform.WebhookURL(view.DeployEndpoint, token)

	view.HomeDir = w.prober.HomeDir(ctx)
	view.PublicKey, view.Fingerprint = sshkey.LoadPublicKey(view.HomeDir)
	if view.PublicKey != "" {
		id := sshkey.GitHubIdentity(view.HomeDir)
		view.Identity = &id
	}
}

func (w *Wizard) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &w.logger
}

func recordStep(step int, outcome string) {
	metrics.WizardSteps.WithLabelValues(strconv.Itoa(step), outcome).Inc()
}

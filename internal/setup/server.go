package setup

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/edvin/deploy-installer/internal/deployconf"
	"github.com/edvin/deploy-installer/internal/metrics"
	mw "github.com/edvin/deploy-installer/internal/middleware"
	"github.com/edvin/deploy-installer/internal/sshkey"
)

// Server is the setup wizard HTTP server.
type Server struct {
	router chi.Router
	wizard *Wizard
	logger zerolog.Logger
}

// NewServer creates the wizard server around w.
func NewServer(w *Wizard, logger zerolog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		wizard: w,
		logger: logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(mw.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	metrics.Mount(s.router)

	s.router.Get("/", s.handleWizard)
	s.router.Post("/", s.handleWizard)
	s.router.Get("/keygen", s.handleKeygen)
	s.router.Post("/keygen", s.handleKeygen)
	s.router.Get("/diagnostics", s.handleDiagnostics)
	s.router.Get("/api/status", s.handleStatus)
}

// Handler returns the HTTP handler for the setup wizard.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleWizard(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	view := s.wizard.Handle(r.Context(), NewRequest(r))
	if view.Configured {
		render(w, r, http.StatusOK, "configured", view)
		return
	}
	render(w, r, http.StatusOK, "wizard", view)
}

// KeygenView is the standalone key helper page.
type KeygenView struct {
	HomeDir        string
	Errors         []string
	Success        []string
	PublicKey      string
	Fingerprint    string
	PrivateKeyPath string
	PublicKeyPath  string
	Generator      string
}

func (s *Server) handleKeygen(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	ctx := r.Context()
	view := KeygenView{HomeDir: s.wizard.prober.HomeDir(ctx)}

	if r.Method == http.MethodPost {
		view.HomeDir = strings.TrimSpace(r.PostFormValue("home_dir"))
		s.generateKey(r, &view)
	}
	render(w, r, http.StatusOK, "keygen", view)
}

func (s *Server) generateKey(r *http.Request, view *KeygenView) {
	if view.HomeDir == "" {
		view.Errors = append(view.Errors, "Home directory is required")
		return
	}
	paths := sshkey.PathsFor(view.HomeDir)
	if _, err := os.Stat(paths.PrivateKeyPath); err == nil {
		view.Errors = append(view.Errors, "SSH key already exists at: "+paths.PrivateKeyPath+". Delete it first if you want to regenerate.")
		return
	}

	s.wizard.mu.Lock()
	res := s.wizard.provisioner.EnsureDeployKey(r.Context(), view.HomeDir)
	s.wizard.mu.Unlock()

	view.Errors = append(view.Errors, res.Errors...)
	view.Success = append(view.Success, res.Messages...)
	view.PublicKey = res.PublicKey
	view.Fingerprint = res.Fingerprint
	view.PrivateKeyPath = res.PrivateKeyPath
	view.PublicKeyPath = res.PublicKeyPath
	view.Generator = res.Generator
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	d := s.wizard.prober.Diagnostics(r.Context())
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, d)
		return
	}
	render(w, r, http.StatusOK, "diagnostics", d)
}

// Status is the machine-readable installer state.
type Status struct {
	Configured     bool   `json:"configured"`
	ConfigPath     string `json:"config_path"`
	InstallerReady bool   `json:"installer_ready"`
	DeployReady    bool   `json:"deploy_ready"`
	HomeDir        string `json:"home_dir"`
	PublicKey      string `json:"public_key,omitempty"`
	Fingerprint    string `json:"fingerprint,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqs := s.wizard.prober.Requirements(ctx)
	st := Status{
		Configured:     deployconf.IsFullyConfigured(s.wizard.configPath),
		ConfigPath:     s.wizard.configPath,
		InstallerReady: reqs.AllRequiredPassed(),
		DeployReady:    reqs.DeploymentReady(),
		HomeDir:        s.wizard.prober.HomeDir(ctx),
	}
	st.PublicKey, st.Fingerprint = sshkey.LoadPublicKey(st.HomeDir)
	writeJSON(w, http.StatusOK, st)
}

// parseForm limits and parses a POST body. It writes the error response
// itself and returns false when the body is unusable.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		return true
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("parse form")
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		fmt.Fprintf(w, `{"error": "encode: %s"}`, err.Error())
	}
}

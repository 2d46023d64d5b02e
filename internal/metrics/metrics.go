package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded for wizard steps.
const (
	OutcomeAdvanced = "advanced"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// FetchFailed labels a deploy script download where no source returned content.
const FetchFailed = "none"

var (
	WizardSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "installer_wizard_steps_total",
			Help: "Wizard step submissions by step and outcome",
		},
		[]string{"step", "outcome"},
	)

	DeployScriptFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "installer_deploy_script_fetch_total",
			Help: "Deploy script downloads by the source that served them",
		},
		[]string{"source"},
	)
)

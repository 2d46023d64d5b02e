package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/edvin/deploy-installer/internal/ui"
)

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check server requirements",
	Long: `Run the requirements checks from the wizard's first step. Exits non-zero
when a required check fails.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print diagnostics as JSON")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	reqs := a.prober.Requirements(ctx)

	if checkJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(a.prober.Diagnostics(ctx)); err != nil {
			return err
		}
	} else {
		ui.Requirements(out, reqs)
	}

	if !reqs.AllRequiredPassed() {
		return errors.New("required checks failed")
	}
	return nil
}

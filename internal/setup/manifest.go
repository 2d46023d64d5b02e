package setup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edvin/deploy-installer/internal/deployconf"
)

// ErrAlreadyConfigured is returned by GenerateFromManifest when a valid
// config exists and force is not set.
var ErrAlreadyConfigured = errors.New("deployment is already configured")

// LoadAnswers reads a step 3 answers manifest from disk.
func LoadAnswers(path string) (deployconf.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return deployconf.Input{}, fmt.Errorf("read answers: %w", err)
	}

	var in deployconf.Input
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		return deployconf.Input{}, fmt.Errorf("parse answers: %w", err)
	}
	return in, nil
}

// WriteAnswers writes in as an answers manifest with mode 0600. It refuses
// to overwrite an existing file.
func WriteAnswers(in deployconf.Input, path string) error {
	data, err := yaml.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	header := "# Deploy installer answers.\n" +
		"# Run `deploy-installer generate -f <this file>` to write the deploy config from it.\n\n"

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create answers: %w", err)
	}
	if _, err := f.WriteString(header + string(data)); err != nil {
		f.Close()
		return fmt.Errorf("write answers: %w", err)
	}
	return f.Close()
}

// GenerateFromManifest loads an answers manifest and writes the deploy
// config at configPath. This is the CLI entry point for `generate`.
func GenerateFromManifest(manifestPath, configPath string, force bool, out io.Writer) (*deployconf.WriteResult, error) {
	if !force && deployconf.IsFullyConfigured(configPath) {
		return nil, fmt.Errorf("%s: %w (use --force to overwrite)", configPath, ErrAlreadyConfigured)
	}

	in, err := LoadAnswers(manifestPath)
	if err != nil {
		return nil, err
	}

	res, err := deployconf.Write(configPath, in)
	var verrs deployconf.ValidationErrors
	if errors.As(err, &verrs) {
		fmt.Fprintf(out, "Validation errors in %s:\n", manifestPath)
		for _, e := range verrs {
			fmt.Fprintf(out, "  %s: %s\n", e.Field, e.Message)
		}
		return nil, fmt.Errorf("%d validation errors", len(verrs))
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

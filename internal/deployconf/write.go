package deployconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteResult describes a written configuration.
type WriteResult struct {
	Path     string `json:"path"`
	Values   Values `json:"values"`
	Replaced bool   `json:"replaced"`
}

// Message is the operator-facing success line for r.
func (r *WriteResult) Message() string {
	name := filepath.Base(r.Path)
	if r.Replaced {
		return name + " updated successfully (previous configuration was overwritten)"
	}
	return name + " created successfully"
}

// Write validates in, renders the configuration and replaces the file at
// path with it. Invalid input returns ValidationErrors before the
// filesystem is touched. The file is written to a temporary sibling, chmod
// 0600 and renamed into place.
func Write(path string, in Input) (*WriteResult, error) {
	if errs := Validate(in); len(errs) > 0 {
		return nil, errs
	}
	v := Normalize(in)

	_, statErr := os.Stat(path)
	replaced := !errors.Is(statErr, fs.ErrNotExist)

	if err := writeFileAtomic(path, []byte(Render(v))); err != nil {
		return nil, err
	}
	return &WriteResult{Path: path, Values: v, Replaced: replaced}, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

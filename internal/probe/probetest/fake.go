// Package probetest provides an in-memory probe.Inspector for tests.
package probetest

import (
	"context"
	"errors"
	"strings"
)

// ErrNoCommand is returned by Output for commands without a canned result.
var ErrNoCommand = errors.New("probetest: command not stubbed")

// Inspector is a fake probe.Inspector. Zero value has no environment, no
// files and no capabilities.
type Inspector struct {
	Env          map[string]string
	AccountHome  string
	Files        map[string]bool // path -> executable
	WritableDirs map[string]bool
	Capabilities map[string]bool
	// Commands maps "name arg1 arg2" to stdout.
	Commands map[string]string

	// Calls records every Output invocation in order.
	Calls []string
}

func (f *Inspector) Getenv(key string) string {
	return f.Env[key]
}

func (f *Inspector) UserHome() string {
	return f.AccountHome
}

func (f *Inspector) Output(_ context.Context, name string, args ...string) (string, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	f.Calls = append(f.Calls, line)
	out, ok := f.Commands[line]
	if !ok {
		return "", ErrNoCommand
	}
	return out, nil
}

func (f *Inspector) IsFile(path string) bool {
	_, ok := f.Files[path]
	return ok
}

func (f *Inspector) IsExecutable(path string) bool {
	return f.Files[path]
}

func (f *Inspector) IsWritableDir(path string) bool {
	return f.WritableDirs[path]
}

func (f *Inspector) HasCapability(name string) bool {
	return f.Capabilities[name]
}

// AllCapabilities returns a capability set with fetch, exec and shell present.
func AllCapabilities() map[string]bool {
	return map[string]bool{"fetch": true, "exec": true, "shell": true}
}

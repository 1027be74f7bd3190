// Package proc launches external check processes and collects their outcome.
package proc

import (
	"context"
	"errors"
	"strings"
)

// ErrToolNotFound indicates the executable could not be located on the search path.
// It is recoverable: the bootstrap resolver installs the tool and retries once.
var ErrToolNotFound = errors.New("tool not found")

// Command describes one executable invocation.
type Command struct {
	Name string   // executable name or path
	Args []string // arguments, not including Name
	Dir  string   // working directory; empty means the current directory
	Env  []string // KEY=VALUE entries added to the inherited environment
}

// String returns the command line as it would be typed in a shell.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Launcher starts processes without waiting for them.
type Launcher interface {
	// Start launches the command and returns immediately.
	// Returns an error wrapping ErrToolNotFound when the executable is missing.
	Start(ctx context.Context, c Command) (Process, error)
}

// Finder is implemented by launchers that can locate an executable without starting it.
type Finder interface {
	// LookPath returns the resolved path, or an error wrapping ErrToolNotFound.
	LookPath(name string) (string, error)
}

// Process is an in-flight external process. It must be drained exactly once.
type Process interface {
	// Wait blocks until the process exits. A nil error means exit status 0.
	Wait() error
	// Output returns the combined stdout and stderr. Only valid after Wait returns.
	Output() string
}

// Drain waits for p to exit and reports whether it succeeded.
// Output is only returned on failure; successful output is dropped.
func Drain(p Process) (bool, string) {
	err := p.Wait()
	if err == nil {
		return true, ""
	}
	out := p.Output()
	if strings.TrimSpace(out) == "" {
		out = err.Error()
	}
	return false, out
}

package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// RealLauncher starts OS processes with combined output capture.
type RealLauncher struct {
	// SearchPath lists directories consulted before PATH, e.g. the tool install dir.
	SearchPath []string
}

var _ Finder = (*RealLauncher)(nil)

// Start resolves the executable and starts it in c.Dir.
func (l *RealLauncher) Start(ctx context.Context, c Command) (Process, error) {
	path, err := l.LookPath(c.Name)
	if err != nil {
		return nil, err
	}

	// #nosec G204 -- running configured check commands is the purpose of this tool.
	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	// One buffer for both streams keeps stdout and stderr interleaved as written.
	p := &realProcess{cmd: cmd}
	cmd.Stdout = &p.buf
	cmd.Stderr = &p.buf

	if err := cmd.Start(); err != nil {
		if IsPathName(c.Name) && isMissingExecutable(err) {
			return nil, fmt.Errorf("%w: %s", ErrToolNotFound, c.Name)
		}
		return nil, fmt.Errorf("start %s: %w", c.Name, err)
	}
	return p, nil
}

// LookPath finds the executable in SearchPath, then in PATH, without running it.
// Names containing a path separator are returned unchanged and resolved against the working directory.
func (l *RealLauncher) LookPath(name string) (string, error) {
	if name == "" {
		return "", errors.New("empty command name")
	}
	if IsPathName(name) {
		return name, nil
	}
	for _, dir := range l.SearchPath {
		if dir == "" {
			continue
		}
		if p, err := exec.LookPath(filepath.Join(dir, name)); err == nil {
			return p, nil
		}
	}
	p, err := exec.LookPath(name)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
		}
		return "", err
	}
	return p, nil
}

// IsPathName reports whether name is a path rather than a name looked up on the search path.
func IsPathName(name string) bool {
	return strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator)
}

// isMissingExecutable reports a failed exec of a nonexistent file, not a missing working directory.
func isMissingExecutable(err error) bool {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && pathErr.Op == "chdir" {
		return false
	}
	return errors.Is(err, fs.ErrNotExist)
}

type realProcess struct {
	cmd *exec.Cmd
	buf bytes.Buffer
}

func (p *realProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *realProcess) Output() string {
	return p.buf.String()
}

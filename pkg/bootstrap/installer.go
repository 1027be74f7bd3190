package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/vertti/presubmit/pkg/proc"
)

// Installer performs the one-time install action for a missing tool.
type Installer interface {
	Install(ctx context.Context, t Tool) error
}

// GoInstaller installs tools with `go install <source>`.
type GoInstaller struct {
	Launcher proc.Launcher
	Dir      string // GOBIN for the install; empty keeps the go default
}

// Install runs go install and blocks until it finishes.
func (g *GoInstaller) Install(ctx context.Context, t Tool) error {
	source := strings.TrimSpace(t.Source)
	if source == "" {
		return fmt.Errorf("no install source configured for %s", t.Name)
	}
	if !strings.Contains(source, "@") {
		source += "@latest"
	}

	c := proc.Command{Name: "go", Args: []string{"install", source}}
	if g.Dir != "" {
		c.Env = []string{"GOBIN=" + g.Dir}
	}

	p, err := g.Launcher.Start(ctx, c)
	if err != nil {
		return fmt.Errorf("install %s: %w", t.Name, err)
	}
	if ok, out := proc.Drain(p); !ok {
		return fmt.Errorf("install %s: %s failed: %s", t.Name, c, strings.TrimSpace(out))
	}
	return nil
}

// Package bootstrap makes sure every external tool a pipeline needs can be launched,
// installing a missing tool once before any check runs.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vertti/presubmit/pkg/proc"
)

// ErrToolPermanentlyUnavailable is returned when a tool is still missing after its install action.
var ErrToolPermanentlyUnavailable = errors.New("tool permanently unavailable")

// Tool is an external executable a pipeline depends on.
type Tool struct {
	Name   string   // executable name
	Probe  []string // args for the availability probe; the exit status is ignored. Empty means look up only
	Source string   // install source, e.g. golang.org/x/lint/golint
}

// Resolver probes tools and installs the missing ones.
type Resolver struct {
	Launcher  proc.Launcher
	Installer Installer
	Log       logrus.FieldLogger
}

// Resolve brings t to a terminal state. A missing tool gets exactly one install
// action and exactly one retry; there is no further looping.
func (r *Resolver) Resolve(ctx context.Context, t Tool) (State, error) {
	log := r.logger().WithField("tool", t.Name)
	state := Unresolved

	move := func(next State) State {
		log.Debugf("tool state %s -> %s", state, next)
		state = next
		return next
	}

	err := r.probe(ctx, t)
	if err == nil {
		return move(Available), nil
	}
	if !errors.Is(err, proc.ErrToolNotFound) {
		return move(PermanentlyUnavailable), fmt.Errorf("%w: %s: %w", ErrToolPermanentlyUnavailable, t.Name, err)
	}

	move(Installing)
	if r.Installer == nil {
		return move(PermanentlyUnavailable), fmt.Errorf("%w: %s: no installer configured", ErrToolPermanentlyUnavailable, t.Name)
	}
	log.Infof("%s not found, installing from %s", t.Name, t.Source)
	installErr := r.Installer.Install(ctx, t)
	if installErr != nil {
		log.Warnf("install failed: %v", installErr)
	}

	retryErr := r.probe(ctx, t)
	if retryErr == nil {
		return move(AvailableAfterInstall), nil
	}
	move(PermanentlyUnavailable)
	return state, errors.Join(
		fmt.Errorf("%w: %s", ErrToolPermanentlyUnavailable, t.Name),
		installErr,
		retryErr,
	)
}

// ResolveAll resolves tools in order and stops at the first tool that cannot be made available.
// Tools sharing a name are resolved once.
func (r *Resolver) ResolveAll(ctx context.Context, tools []Tool) (map[string]State, error) {
	states := make(map[string]State, len(tools))
	for _, t := range tools {
		if _, seen := states[t.Name]; seen {
			continue
		}
		state, err := r.Resolve(ctx, t)
		states[t.Name] = state
		if err != nil {
			return states, err
		}
	}
	return states, nil
}

// probe checks that t can be launched. Without probe args the executable is only
// looked up when the launcher supports it, so arbitrary commands are never run.
// A launched probe is drained and its exit status ignored.
func (r *Resolver) probe(ctx context.Context, t Tool) error {
	if f, ok := r.Launcher.(proc.Finder); ok && len(t.Probe) == 0 {
		_, err := f.LookPath(t.Name)
		return err
	}
	p, err := r.Launcher.Start(ctx, proc.Command{Name: t.Name, Args: t.Probe})
	if err != nil {
		return err
	}
	proc.Drain(p)
	return nil
}

func (r *Resolver) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

// Required returns the tools launched by any of cmds: the matching entries of tools in
// their order, then a bare Tool for every other executable name, in command order.
// A bare tool has no install source, so a missing one is permanently unavailable.
// Commands given by path are not tools and are skipped.
func Required(tools []Tool, cmds []proc.Command) []Tool {
	used := make(map[string]bool, len(cmds))
	for _, c := range cmds {
		used[c.Name] = true
	}
	known := make(map[string]bool, len(tools))
	var out []Tool
	for _, t := range tools {
		known[t.Name] = true
		if used[t.Name] {
			out = append(out, t)
		}
	}
	for _, c := range cmds {
		if known[c.Name] || c.Name == "" || proc.IsPathName(c.Name) {
			continue
		}
		known[c.Name] = true
		out = append(out, Tool{Name: c.Name})
	}
	return out
}

// Package testutil provides fakes for the process launcher used across package tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vertti/presubmit/pkg/proc"
)

// FakeProcess is a scripted proc.Process.
type FakeProcess struct {
	Err   error         // returned by Wait; nil means exit status 0
	Out   string        // combined output
	Delay time.Duration // how long Wait blocks

	mu    sync.Mutex
	waits int
}

func (p *FakeProcess) Wait() error {
	if p.Delay > 0 {
		time.Sleep(p.Delay)
	}
	p.mu.Lock()
	p.waits++
	p.mu.Unlock()
	return p.Err
}

func (p *FakeProcess) Output() string {
	return p.Out
}

// Waits returns how many times Wait was called.
func (p *FakeProcess) Waits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waits
}

// FakeLauncher records launches and delegates to StartFunc.
type FakeLauncher struct {
	StartFunc func(c proc.Command) (proc.Process, error)

	mu      sync.Mutex
	started []proc.Command
}

func (l *FakeLauncher) Start(_ context.Context, c proc.Command) (proc.Process, error) {
	l.mu.Lock()
	l.started = append(l.started, c)
	l.mu.Unlock()
	if l.StartFunc == nil {
		return &FakeProcess{}, nil
	}
	return l.StartFunc(c)
}

// Started returns the commands launched so far, in launch order.
func (l *FakeLauncher) Started() []proc.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]proc.Command, len(l.started))
	copy(out, l.started)
	return out
}

// Launches returns the number of Start calls.
func (l *FakeLauncher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.started)
}

// Scripted returns a StartFunc serving processes by command line (see proc.Command.String).
// Unknown commands succeed with no output.
func Scripted(procs map[string]*FakeProcess) func(c proc.Command) (proc.Process, error) {
	return func(c proc.Command) (proc.Process, error) {
		if p, ok := procs[c.String()]; ok {
			return p, nil
		}
		return &FakeProcess{}, nil
	}
}

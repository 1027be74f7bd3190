package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertti/presubmit/pkg/logging"
	"github.com/vertti/presubmit/pkg/proc"
	"github.com/vertti/presubmit/pkg/testutil"
)

var golint = Tool{Name: "golint", Probe: []string{"-h"}, Source: "golang.org/x/lint/golint"}

// fakeInstaller flips installed on Install when succeeds is set.
type fakeInstaller struct {
	calls     int
	succeeds  bool
	err       error
	installed *bool
}

func (f *fakeInstaller) Install(_ context.Context, _ Tool) error {
	f.calls++
	if f.succeeds {
		*f.installed = true
	}
	return f.err
}

// toolLauncher reports ErrToolNotFound for name until *installed is true.
func toolLauncher(name string, installed *bool) *testutil.FakeLauncher {
	return &testutil.FakeLauncher{
		StartFunc: func(c proc.Command) (proc.Process, error) {
			if c.Name == name && !*installed {
				return nil, fmt.Errorf("%w: %s", proc.ErrToolNotFound, c.Name)
			}
			return &testutil.FakeProcess{Err: errors.New("exit status 2"), Out: "usage"}, nil
		},
	}
}

func newResolver(l proc.Launcher, in Installer) *Resolver {
	return &Resolver{Launcher: l, Installer: in, Log: logging.Discard()}
}

func TestResolve_AlreadyAvailable(t *testing.T) {
	installed := true
	launcher := toolLauncher("golint", &installed)
	installer := &fakeInstaller{installed: &installed}

	state, err := newResolver(launcher, installer).Resolve(context.Background(), golint)

	require.NoError(t, err)
	assert.Equal(t, Available, state)
	assert.Equal(t, 0, installer.calls)
	assert.Equal(t, 1, launcher.Launches())
	assert.Equal(t, []string{"-h"}, launcher.Started()[0].Args)
}

func TestResolve_AbsentThenPresent(t *testing.T) {
	installed := false
	launcher := toolLauncher("golint", &installed)
	installer := &fakeInstaller{succeeds: true, installed: &installed}

	state, err := newResolver(launcher, installer).Resolve(context.Background(), golint)

	require.NoError(t, err)
	assert.Equal(t, AvailableAfterInstall, state)
	assert.Equal(t, 1, installer.calls, "exactly one install action")
	assert.Equal(t, 2, launcher.Launches(), "probe plus one retry")
}

func TestResolve_PermanentlyAbsent(t *testing.T) {
	installed := false
	launcher := toolLauncher("golint", &installed)
	installer := &fakeInstaller{installed: &installed}

	state, err := newResolver(launcher, installer).Resolve(context.Background(), golint)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolPermanentlyUnavailable)
	assert.ErrorIs(t, err, proc.ErrToolNotFound)
	assert.Equal(t, PermanentlyUnavailable, state)
	assert.Equal(t, 1, installer.calls, "exactly one install attempt")
	assert.Equal(t, 2, launcher.Launches(), "no retries beyond the first")
}

func TestResolve_InstallErrorIsReported(t *testing.T) {
	installed := false
	launcher := toolLauncher("golint", &installed)
	installErr := errors.New("go install: network unreachable")
	installer := &fakeInstaller{installed: &installed, err: installErr}

	state, err := newResolver(launcher, installer).Resolve(context.Background(), golint)

	assert.Equal(t, PermanentlyUnavailable, state)
	assert.ErrorIs(t, err, installErr)
	assert.ErrorIs(t, err, ErrToolPermanentlyUnavailable)
}

func TestResolve_InstallErrorButToolAppears(t *testing.T) {
	installed := false
	launcher := toolLauncher("golint", &installed)
	installer := &fakeInstaller{succeeds: true, installed: &installed, err: errors.New("warning exit")}

	state, err := newResolver(launcher, installer).Resolve(context.Background(), golint)

	require.NoError(t, err)
	assert.Equal(t, AvailableAfterInstall, state)
}

func TestResolve_OtherLaunchErrorIsFatalWithoutInstall(t *testing.T) {
	launcher := &testutil.FakeLauncher{
		StartFunc: func(c proc.Command) (proc.Process, error) {
			return nil, errors.New("permission denied")
		},
	}
	installed := false
	installer := &fakeInstaller{installed: &installed}

	state, err := newResolver(launcher, installer).Resolve(context.Background(), golint)

	assert.Equal(t, PermanentlyUnavailable, state)
	assert.ErrorIs(t, err, ErrToolPermanentlyUnavailable)
	assert.Equal(t, 0, installer.calls)
}

func TestResolve_NoInstaller(t *testing.T) {
	installed := false
	launcher := toolLauncher("golint", &installed)

	state, err := newResolver(launcher, nil).Resolve(context.Background(), golint)

	assert.Equal(t, PermanentlyUnavailable, state)
	assert.ErrorIs(t, err, ErrToolPermanentlyUnavailable)
	assert.Equal(t, 1, launcher.Launches())
}

func TestResolve_ProbeIsDrained(t *testing.T) {
	probe := &testutil.FakeProcess{Err: errors.New("exit status 2")}
	launcher := &testutil.FakeLauncher{
		StartFunc: func(c proc.Command) (proc.Process, error) { return probe, nil },
	}

	_, err := newResolver(launcher, nil).Resolve(context.Background(), golint)

	require.NoError(t, err)
	assert.Equal(t, 1, probe.Waits())
}

func TestResolveAll_StopsAtFirstFailure(t *testing.T) {
	installed := false
	launcher := toolLauncher("golint", &installed)
	installer := &fakeInstaller{installed: &installed}
	tools := []Tool{
		{Name: "go", Probe: []string{"version"}},
		golint,
		{Name: "staticcheck", Source: "honnef.co/go/tools/cmd/staticcheck"},
	}

	states, err := newResolver(launcher, installer).ResolveAll(context.Background(), tools)

	require.Error(t, err)
	assert.Equal(t, Available, states["go"])
	assert.Equal(t, PermanentlyUnavailable, states["golint"])
	_, resolved := states["staticcheck"]
	assert.False(t, resolved, "tools after a failure are not resolved")
}

func TestResolveAll_DeduplicatesByName(t *testing.T) {
	installed := false
	launcher := toolLauncher("golint", &installed)
	installer := &fakeInstaller{succeeds: true, installed: &installed}

	states, err := newResolver(launcher, installer).ResolveAll(context.Background(), []Tool{golint, golint})

	require.NoError(t, err)
	assert.Equal(t, AvailableAfterInstall, states["golint"])
	assert.Equal(t, 1, installer.calls)
}

func TestRequired(t *testing.T) {
	tools := []Tool{golint, {Name: "staticcheck"}, {Name: "errcheck"}}
	cmds := []proc.Command{
		{Name: "go", Args: []string{"build"}},
		{Name: "errcheck"},
		{Name: "golint"},
		{Name: "go", Args: []string{"vet"}},
		{Name: "./check-headers.sh"},
		{Name: "gofmt"},
	}

	got := Required(tools, cmds)

	assert.Equal(t, []Tool{golint, {Name: "errcheck"}, {Name: "go"}, {Name: "gofmt"}}, got)
}

// findingLauncher resolves names through LookPath and fails the test if anything is started.
type findingLauncher struct {
	t       *testing.T
	present map[string]bool
	lookups []string
}

func (f *findingLauncher) Start(_ context.Context, c proc.Command) (proc.Process, error) {
	f.t.Errorf("unexpected launch of %s", c)
	return &testutil.FakeProcess{}, nil
}

func (f *findingLauncher) LookPath(name string) (string, error) {
	f.lookups = append(f.lookups, name)
	if f.present[name] {
		return "/usr/bin/" + name, nil
	}
	return "", fmt.Errorf("%w: %s", proc.ErrToolNotFound, name)
}

func TestResolve_BareToolIsLookedUpNotRun(t *testing.T) {
	launcher := &findingLauncher{t: t, present: map[string]bool{"make": true}}
	r := &Resolver{Launcher: launcher, Installer: &GoInstaller{Launcher: launcher}, Log: logging.Discard()}

	state, err := r.Resolve(context.Background(), Tool{Name: "make"})
	require.NoError(t, err)
	assert.Equal(t, Available, state)
	assert.Equal(t, []string{"make"}, launcher.lookups)
}

func TestResolve_MissingBareToolIsPermanentlyUnavailable(t *testing.T) {
	launcher := &findingLauncher{t: t}
	r := &Resolver{Launcher: launcher, Installer: &GoInstaller{Launcher: launcher}, Log: logging.Discard()}

	state, err := r.Resolve(context.Background(), Tool{Name: "presubmit-nonexistent-tool-xyz"})
	assert.ErrorIs(t, err, ErrToolPermanentlyUnavailable)
	assert.ErrorIs(t, err, proc.ErrToolNotFound)
	assert.Equal(t, PermanentlyUnavailable, state)
	assert.Len(t, launcher.lookups, 2, "one lookup and one retry")
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Unresolved, "unresolved"},
		{Available, "available"},
		{Installing, "installing"},
		{AvailableAfterInstall, "available-after-install"},
		{PermanentlyUnavailable, "permanently-unavailable"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestStateUsable(t *testing.T) {
	assert.True(t, Available.Usable())
	assert.True(t, AvailableAfterInstall.Usable())
	assert.False(t, Unresolved.Usable())
	assert.False(t, Installing.Usable())
	assert.False(t, PermanentlyUnavailable.Usable())
}

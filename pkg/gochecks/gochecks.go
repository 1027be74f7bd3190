// Package gochecks derives the presubmit pipeline for a Go project from its configuration.
package gochecks

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vertti/presubmit/pkg/bootstrap"
	"github.com/vertti/presubmit/pkg/pipeline"
	"github.com/vertti/presubmit/pkg/presubmitfile"
	"github.com/vertti/presubmit/pkg/proc"
)

// SelfName is the executable name that custom checks use to call back into presubmit.
const SelfName = "presubmit"

// Golint is the linter run by the lint family, installed on first use.
var Golint = bootstrap.Tool{
	Name:   "golint",
	Probe:  []string{"-h"},
	Source: "golang.org/x/lint/golint",
}

// executable is replaced in tests.
var executable = os.Executable

// Build returns the check specs for cfg in definition order, followed by the tools they may need.
// For each directory the order is build, test, vet, lint, fmt; custom checks come last.
func Build(cfg presubmitfile.Config) ([]pipeline.CheckSpec, []bootstrap.Tool, error) {
	var specs []pipeline.CheckSpec
	for _, d := range cfg.Dirs {
		specs = append(specs, dirChecks(cfg, clean(d))...)
	}

	custom, err := customChecks(cfg.Checks)
	if err != nil {
		return nil, nil, err
	}
	specs = append(specs, custom...)

	return specs, tools(cfg), nil
}

func dirChecks(cfg presubmitfile.Config, dir string) []pipeline.CheckSpec {
	var specs []pipeline.CheckSpec
	goCmd := func(sub string) proc.Command {
		args := []string{sub}
		if cfg.Tags != "" {
			args = append(args, "-tags", cfg.Tags)
		}
		return proc.Command{Name: "go", Args: append(args, "./..."), Dir: dir}
	}

	buildID := "build:" + dir
	if cfg.Build {
		specs = append(specs, pipeline.CheckSpec{ID: buildID, Command: goCmd("build")})
	}
	if cfg.Test {
		spec := pipeline.CheckSpec{ID: "test:" + dir, Command: goCmd("test")}
		if cfg.Build {
			spec.DependsOn = []string{buildID}
		}
		specs = append(specs, spec)
	}
	if cfg.Vet {
		specs = append(specs, pipeline.CheckSpec{ID: "vet:" + dir, Command: goCmd("vet")})
	}
	if cfg.Lint {
		specs = append(specs, pipeline.CheckSpec{
			ID:      "lint:" + dir,
			Command: proc.Command{Name: Golint.Name, Args: []string{"./..."}, Dir: dir},
		})
	}
	if cfg.Fmt {
		specs = append(specs, pipeline.CheckSpec{
			ID:           "fmt:" + dir,
			Command:      proc.Command{Name: "gofmt", Args: []string{"-l", "-s", "."}, Dir: dir},
			FailOnOutput: true,
		})
	}
	return specs
}

func customChecks(checks []presubmitfile.Check) ([]pipeline.CheckSpec, error) {
	specs := make([]pipeline.CheckSpec, 0, len(checks))
	for _, c := range checks {
		var cmd proc.Command
		if len(c.Command) > 0 {
			cmd = proc.Command{Name: c.Command[0], Args: c.Command[1:], Dir: c.Dir}
		}
		if cmd.Name == SelfName {
			self, err := executable()
			if err != nil {
				return nil, fmt.Errorf("failed to locate presubmit executable for check %s: %w", c.Name, err)
			}
			cmd.Name = self
		}
		specs = append(specs, pipeline.CheckSpec{
			ID:           c.Name,
			Command:      cmd,
			DependsOn:    c.DependsOn,
			FailOnOutput: c.FailOnOutput,
		})
	}
	return specs, nil
}

// tools lists golint and the configured tools. A configured tool replaces a default of the same name.
func tools(cfg presubmitfile.Config) []bootstrap.Tool {
	out := []bootstrap.Tool{Golint}
	for _, t := range cfg.Tools {
		tool := bootstrap.Tool{Name: t.Name, Probe: t.Probe, Source: t.Source}
		replaced := false
		for i := range out {
			if out[i].Name == tool.Name {
				out[i] = tool
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, tool)
		}
	}
	return out
}

func clean(dir string) string {
	if dir == "" {
		return "."
	}
	return filepath.ToSlash(filepath.Clean(dir))
}

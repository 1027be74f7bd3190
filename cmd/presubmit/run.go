package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vertti/presubmit/pkg/bootstrap"
	"github.com/vertti/presubmit/pkg/gochecks"
	"github.com/vertti/presubmit/pkg/logging"
	"github.com/vertti/presubmit/pkg/output"
	"github.com/vertti/presubmit/pkg/pipeline"
	"github.com/vertti/presubmit/pkg/presubmitfile"
	"github.com/vertti/presubmit/pkg/proc"
	"github.com/vertti/presubmit/pkg/report"
)

// ErrChecksFailed is returned when at least one check failed. The report has already been printed.
var ErrChecksFailed = errors.New("checks failed")

// failedRunError carries the report of a run with failed checks.
type failedRunError struct {
	report report.Report
}

func (e *failedRunError) Error() string {
	return fmt.Sprintf("%d of %d checks failed", len(e.report.Failures()), len(e.report.Results))
}

func (e *failedRunError) Unwrap() error {
	return ErrChecksFailed
}

var onlyCheck string

// Replaced in tests.
var (
	newLauncher = func(cfg presubmitfile.Config) proc.Launcher {
		return &proc.RealLauncher{SearchPath: []string{cfg.InstallDir}}
	}
	newInstaller = func(l proc.Launcher, cfg presubmitfile.Config) bootstrap.Installer {
		return &bootstrap.GoInstaller{Launcher: l, Dir: cfg.InstallDir}
	}
)

func init() {
	rootCmd.Flags().StringVar(&onlyCheck, "only", "", "run only the named check, ignoring its dependencies")
}

// project is the resolved configuration and the pipeline derived from it.
type project struct {
	cfg   presubmitfile.Config
	specs []pipeline.CheckSpec
	tools []bootstrap.Tool
}

func loadProject() (project, error) {
	wd, err := os.Getwd()
	if err != nil {
		return project{}, fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg, err := presubmitfile.Resolve(wd, configPath, rootDir)
	if err != nil {
		return project{}, err
	}
	specs, tools, err := gochecks.Build(cfg)
	if err != nil {
		return project{}, err
	}
	return project{cfg: cfg, specs: specs, tools: tools}, nil
}

func runPresubmit(cmd *cobra.Command, _ []string) error {
	start := time.Now()
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	p, err := loadProject()
	if err != nil {
		return err
	}
	if err := pipeline.Validate(p.specs); err != nil {
		return err
	}

	specs := p.specs
	if onlyCheck != "" {
		if specs, err = pipeline.Only(specs, onlyCheck); err != nil {
			return err
		}
	}
	log.Debugf("root %s, %d checks", p.cfg.Root, len(specs))

	launcher := newLauncher(p.cfg)
	resolver := &bootstrap.Resolver{
		Launcher:  launcher,
		Installer: newInstaller(launcher, p.cfg),
		Log:       logging.WithComponent(log, "bootstrap"),
	}
	if _, err := resolver.ResolveAll(ctx, bootstrap.Required(p.tools, pipeline.Commands(specs))); err != nil {
		return err
	}

	runner := &pipeline.Runner{
		Root:     p.cfg.Root,
		Launcher: launcher,
		Log:      logging.WithComponent(log, "pipeline"),
	}
	results, err := runner.Run(ctx, specs)
	if err != nil {
		return err
	}

	r := report.New(results, time.Since(start))
	output.PrintReport(cmd.OutOrStdout(), r)
	if !r.OK() {
		return &failedRunError{report: r}
	}
	return nil
}

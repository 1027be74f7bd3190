package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vertti/presubmit/pkg/check"
	"github.com/vertti/presubmit/pkg/proc"
)

var (
	// ErrCheckFailed marks a check whose process exited with a non-zero status.
	ErrCheckFailed = errors.New("check failed")

	// ErrUnexpectedOutput marks a FailOnOutput check that exited 0 but printed something.
	ErrUnexpectedOutput = errors.New("unexpected output")
)

// Runner executes a pipeline against one source tree.
type Runner struct {
	Root     string // project root; relative command dirs are joined to it
	Launcher proc.Launcher
	Log      logrus.FieldLogger
}

type launch struct {
	index   int
	spec    CheckSpec
	process proc.Process
	err     error
	started time.Time
}

// Run validates specs, then runs them stage by stage. Within a stage every spec is
// launched before any is drained, and handles are drained in launch order.
// Failed checks never stop later stages. The returned results are in definition order.
func (r *Runner) Run(ctx context.Context, specs []CheckSpec) ([]check.Result, error) {
	stages, err := Stages(specs)
	if err != nil {
		return nil, err
	}

	log := r.logger()
	results := make([]check.Result, len(specs))

	for n, stage := range stages {
		log.Debugf("stage %d/%d: %s", n+1, len(stages), strings.Join(stageIDs(specs, stage), " "))

		launched := make([]launch, 0, len(stage))
		for _, i := range stage {
			launched = append(launched, r.launch(ctx, i, specs[i]))
		}
		for _, l := range launched {
			results[l.index] = r.collect(l)
		}
	}
	return results, nil
}

func (r *Runner) launch(ctx context.Context, i int, spec CheckSpec) launch {
	cmd := spec.Command
	cmd.Dir = r.dir(cmd.Dir)

	r.logger().WithFields(logrus.Fields{"check": spec.ID, "dir": cmd.Dir}).Debugf("launch %s", cmd)
	l := launch{index: i, spec: spec, started: time.Now()}
	l.process, l.err = r.Launcher.Start(ctx, cmd)
	return l
}

func (r *Runner) collect(l launch) check.Result {
	var result check.Result
	switch {
	case l.err != nil:
		result = check.Failf(l.spec.ID, "cannot start %s: %w", l.spec.Command, l.err)
	default:
		ok, out := proc.Drain(l.process)
		switch {
		case !ok:
			result = check.Fail(l.spec.ID, out, ErrCheckFailed)
		case l.spec.FailOnOutput && strings.TrimSpace(l.process.Output()) != "":
			result = check.Fail(l.spec.ID, l.process.Output(), ErrUnexpectedOutput)
		default:
			result = check.Pass(l.spec.ID)
		}
	}
	result.Duration = time.Since(l.started)

	r.logger().WithFields(logrus.Fields{
		"check":    l.spec.ID,
		"ok":       result.OK(),
		"duration": result.Duration.Round(time.Millisecond),
	}).Debug("drained")
	return result
}

func (r *Runner) dir(d string) string {
	switch {
	case d == "":
		return r.Root
	case filepath.IsAbs(d):
		return d
	default:
		return filepath.Join(r.Root, d)
	}
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

func stageIDs(specs []CheckSpec, stage []int) []string {
	ids := make([]string, 0, len(stage))
	for _, i := range stage {
		ids = append(ids, specs[i].ID)
	}
	return ids
}

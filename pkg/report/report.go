// Package report folds per-check results into the verdict of one run.
package report

import (
	"time"

	"github.com/vertti/presubmit/pkg/check"
)

const (
	ExitOK     = 0
	ExitFailed = 1
)

// Report is the outcome of one pipeline run.
type Report struct {
	Results []check.Result // definition order
	Elapsed time.Duration
	ok      bool
}

// New builds a report. Success is derived from results; an empty run succeeds.
func New(results []check.Result, elapsed time.Duration) Report {
	ok := true
	for _, r := range results {
		if !r.OK() {
			ok = false
			break
		}
	}
	return Report{Results: results, Elapsed: elapsed, ok: ok}
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	return r.ok
}

// Failures returns the failed results in definition order.
func (r Report) Failures() []check.Result {
	var failed []check.Result
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Passed returns the number of checks that succeeded.
func (r Report) Passed() int {
	return len(r.Results) - len(r.Failures())
}

// ExitCode is 0 when every check passed and 1 otherwise.
func (r Report) ExitCode() int {
	if r.ok {
		return ExitOK
	}
	return ExitFailed
}

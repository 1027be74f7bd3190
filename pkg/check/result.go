package check

import "time"

// Status represents the outcome of a check.
type Status string

const (
	StatusOK   Status = "OK"
	StatusFail Status = "FAIL"
)

// Result holds the outcome of a single check.
type Result struct {
	Name     string        // e.g., "build:.", "test:wicore"
	Status   Status        // OK or FAIL
	Output   string        // combined stdout/stderr, empty unless failed
	Err      error         // underlying error for failures
	Duration time.Duration // wall-clock time from launch to drain
}

// OK returns true if the check passed.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

package check

import "fmt"

// Pass returns a successful result for the named check.
func Pass(name string) Result {
	return Result{Name: name, Status: StatusOK}
}

// Fail returns a failed result carrying the captured output.
func Fail(name, output string, err error) Result {
	return Result{Name: name, Status: StatusFail, Output: output, Err: err}
}

// Failf returns a failed result whose output is the formatted error message.
// The format may wrap errors with %w.
func Failf(name, format string, args ...interface{}) Result {
	err := fmt.Errorf(format, args...)
	return Fail(name, err.Error(), err)
}

package reporter

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-reporter/exitcodes"
)

var (
	_ cli.ExitCoder = (*RuntimeError)(nil)
	_ cli.ExitCoder = (*TestFailureError)(nil)
)

// RuntimeError means no complete report could be rendered: bad configuration, an
// unreadable or malformed event stream, a protocol violation or an unwritable output.
type RuntimeError struct {
	Err error
}

func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func (e *RuntimeError) ExitCode() int {
	return exitcodes.RuntimeErr
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return errors.As(err, &runtimeErr)
}

// TestFailureError reports a replayed run with failed or undefined steps. The reports
// were still rendered.
type TestFailureError struct {
	RunID     string
	Failed    int
	Undefined int
}

func NewTestFailureError(runID string, failed int, undefined int) *TestFailureError {
	return &TestFailureError{RunID: runID, Failed: failed, Undefined: undefined}
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: run %s has %d failed and %d undefined steps", e.RunID, e.Failed, e.Undefined)
}

func (e *TestFailureError) ExitCode() int {
	return exitcodes.TestFailure
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return errors.As(err, &testErr)
}

package browsertest

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/infra/op-browsertest/exitcodes"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

// RuntimeError represents an operational error that should lead to exit code 2
// Examples include a malformed environments file, a missing test directory or
// an unreachable remote grid.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError is returned by a run-once invocation whose aggregate
// status is fail (exit code 1)
type TestFailureError struct {
	RunID  string
	Failed int
	Total  int
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: run %s failed %d of %d tasks", e.RunID, e.Failed, e.Total)
}

// NewTestFailureError creates a new TestFailureError from a failed aggregate
func NewTestFailureError(result *types.AggregateResult) *TestFailureError {
	return &TestFailureError{RunID: result.RunID, Failed: result.Failed, Total: result.TotalTests}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}

// ExitCode maps an error returned by the application to a process exit code.
// Configuration errors count as runtime errors even when not wrapped in one.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case IsRuntimeError(err), types.IsConfigurationError(err):
		return exitcodes.RuntimeErr
	default:
		return exitcodes.TestFailure
	}
}

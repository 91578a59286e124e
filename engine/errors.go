package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	ErrExecution     = errors.New("code execution failed")
	ErrMissingOutput = errors.New("missing output binding")
	ErrLimitExceeded = errors.New("execution limit exceeded")
	ErrPlanRejected  = errors.New("plan rejected")
)

// MissingOutputError means the code ran to completion but never bound the
// output name.
type MissingOutputError struct {
	Binding string
}

func (e *MissingOutputError) Error() string {
	return fmt.Sprintf("executed code did not produce a '%s' variable", e.Binding)
}

// Is matches ErrMissingOutput.
func (e *MissingOutputError) Is(target error) bool { return target == ErrMissingOutput }

// ExecutionError is any other failure while running generated code: syntax
// and resolution errors, runtime errors, wrong result types, exhausted
// limits and rejected plans. Line and Column are 1-based, 0 when unknown.
type ExecutionError struct {
	Message string
	Line    int
	Column  int
	Err     error
}

func (e *ExecutionError) Error() string {
	return "error while executing code: " + e.Message
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Is matches ErrExecution.
func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }

func execError(err error, format string, args ...any) *ExecutionError {
	return &ExecutionError{Message: fmt.Sprintf(format, args...), Err: err}
}

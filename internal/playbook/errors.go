package playbook

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPlaybook indicates a playbook failed validation.
	ErrInvalidPlaybook = errors.New("invalid playbook")

	// ErrExpectation indicates an expect step did not hold.
	ErrExpectation = errors.New("expectation failed")

	// ErrUnexpectedSuccess indicates a step marked expect_error succeeded.
	ErrUnexpectedSuccess = errors.New("expected an error")
)

// StepError reports the step that stopped a run.
type StepError struct {
	Index int // 1-based
	Op    Op
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Op, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrSubmissionRejected is returned when a task is submitted while another one is still running.
	ErrSubmissionRejected = errors.New("submission rejected: a task is already running")
)

// EngineFailure is the typed failure produced when the task engine could not
// complete a work item, either by returning an error or by panicking.
type EngineFailure struct {
	Reason string
	Err    error
}

// NewEngineFailure wraps an engine error into an EngineFailure.
func NewEngineFailure(err error) *EngineFailure {
	if err == nil {
		return &EngineFailure{Reason: "unknown error"}
	}
	return &EngineFailure{Reason: err.Error(), Err: err}
}

func (e *EngineFailure) Error() string { return fmt.Sprintf("engine failure: %s", e.Reason) }

func (e *EngineFailure) Unwrap() error { return e.Err }

// FailureText is the text shown to the user for a failed task.
func FailureText(reason string) string {
	return fmt.Sprintf("Task failed: %s", reason)
}

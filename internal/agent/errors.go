package agent

import (
	"errors"
	"fmt"
)

var (
	ErrInterrupted     = errors.New("execution interrupted")
	ErrMaxSteps        = errors.New("max steps reached")
	ErrTooManyFailures = errors.New("too many consecutive failures")
	// ErrRunFinished is returned by Step once the run is Done or Aborted.
	ErrRunFinished = errors.New("run already finished")
	// ErrMonitorRequired is returned by Coordinator.Run for the delegated
	// variant when no monitor is attached.
	ErrMonitorRequired = errors.New("delegated variant requires a monitor")
)

// ModelCallError wraps a transport failure of the model collaborator. The
// agent loop never retries it.
type ModelCallError struct {
	Role string
	Err  error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("%s model call failed: %v", e.Role, e.Err)
}

func (e *ModelCallError) Unwrap() error { return e.Err }

// EnvironmentError is a failure of the browser collaborator.
type EnvironmentError struct {
	Action string
	Err    error
}

func (e *EnvironmentError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("environment error: %v", e.Err)
	}
	return fmt.Sprintf("environment error during %s: %v", e.Action, e.Err)
}

func (e *EnvironmentError) Unwrap() error { return e.Err }

// StaleReferenceError reports an action that targets an element index
// absent from the snapshot the action was planned against.
type StaleReferenceError struct {
	Action string
	Index  int
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("element with index %d does not exist on the current page, retry with a valid index (%s)", e.Index, e.Action)
}

// As lets errors.As treat a stale reference as an EnvironmentError.
func (e *StaleReferenceError) As(target any) bool {
	if t, ok := target.(**EnvironmentError); ok {
		*t = &EnvironmentError{Action: e.Action, Err: errors.New(e.Error())}
		return true
	}
	return false
}

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusAborted Status = "aborted"
)

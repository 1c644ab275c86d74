package agent

import (
	"errors"
)

// humanizeReason explains why a run ended.
func humanizeReason(status Status, err error) string {
	if status == StatusDone {
		return "model explicitly finished the task"
	}
	var (
		mce *ModelCallError
		ee  *EnvironmentError
	)
	switch {
	case err == nil:
		return "run stopped"
	case errors.Is(err, ErrMaxSteps):
		return "step limit reached"
	case errors.Is(err, ErrInterrupted):
		return "execution was interrupted by user (Ctrl+C)"
	case errors.Is(err, ErrTooManyFailures):
		return "the model kept producing invalid replies"
	case errors.As(err, &mce):
		return "LLM client error"
	case errors.As(err, &ee):
		return "browser environment error"
	default:
		return err.Error()
	}
}

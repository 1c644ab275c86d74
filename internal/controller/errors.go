package controller

import (
	"errors"
	"fmt"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/browser"
)

type ErrorCode string

const (
	CodeElementNotFound   ErrorCode = "ELEMENT_NOT_FOUND"
	CodeInvalidParameters ErrorCode = "INVALID_PARAMETERS"
	CodeNavigationError   ErrorCode = "NAVIGATION_ERROR"
	CodeExecutionFailure  ErrorCode = "EXECUTION_FAILURE"
	CodeClipboardError    ErrorCode = "CLIPBOARD_ERROR"
	CodeUnknownAction     ErrorCode = "UNKNOWN_ACTION"
)

// ActionError is an executor failure tagged with a stable code.
type ActionError struct {
	Code   ErrorCode
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Action, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

func newActionError(code ErrorCode, action string, err error) *ActionError {
	return &ActionError{Code: code, Action: action, Err: err}
}

// classify picks a code for a driver error.
func classify(action string, fallback ErrorCode, err error) error {
	if err == nil {
		return nil
	}
	var ae *ActionError
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, browser.ErrElementNotFound) {
		return newActionError(CodeElementNotFound, action, err)
	}
	return newActionError(fallback, action, err)
}

// CodeOf returns the code of err, or "" if err is not an ActionError.
func CodeOf(err error) ErrorCode {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

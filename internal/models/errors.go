package models

import (
	"errors"
	"fmt"
)

// ErrorKind names a failure class reported on a task
type ErrorKind string

const (
	KindUnsupportedFormat     ErrorKind = "UnsupportedFormat"
	KindMissingCompanionFile  ErrorKind = "MissingCompanionFile"
	KindExtractionFailed      ErrorKind = "ExtractionFailed"
	KindExtractionTimeout     ErrorKind = "ExtractionTimeout"
	KindEmptyExtraction       ErrorKind = "EmptyExtraction"
	KindUnrecognizedAlgorithm ErrorKind = "UnrecognizedAlgorithm"
	KindEngineLaunchFailed    ErrorKind = "EngineLaunchFailed"
	KindStageTimeout          ErrorKind = "StageTimeout"
	KindCancelled             ErrorKind = "Cancelled"
	KindBudgetExhausted       ErrorKind = "BudgetExhausted"
	// KindAbandoned marks a task nobody advanced before the stale timeout
	KindAbandoned ErrorKind = "Abandoned"
)

// CrackError carries a kind plus a human reason. Two CrackErrors match under
// errors.Is when their kinds are equal.
type CrackError struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *CrackError) Error() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *CrackError) Unwrap() error {
	return e.Err
}

func (e *CrackError) Is(target error) bool {
	t, ok := target.(*CrackError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks
var (
	ErrUnsupportedFormat     = &CrackError{Kind: KindUnsupportedFormat}
	ErrMissingCompanionFile  = &CrackError{Kind: KindMissingCompanionFile}
	ErrExtractionFailed      = &CrackError{Kind: KindExtractionFailed}
	ErrExtractionTimeout     = &CrackError{Kind: KindExtractionTimeout}
	ErrEmptyExtraction       = &CrackError{Kind: KindEmptyExtraction}
	ErrUnrecognizedAlgorithm = &CrackError{Kind: KindUnrecognizedAlgorithm}
	ErrEngineLaunchFailed    = &CrackError{Kind: KindEngineLaunchFailed}
	ErrStageTimeout          = &CrackError{Kind: KindStageTimeout}
	ErrCancelled             = &CrackError{Kind: KindCancelled}
	ErrBudgetExhausted       = &CrackError{Kind: KindBudgetExhausted}
	ErrAbandoned             = &CrackError{Kind: KindAbandoned}
)

// NewError builds a CrackError with a formatted reason
func NewError(kind ErrorKind, format string, args ...interface{}) *CrackError {
	return &CrackError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// WrapError attaches cause to a new CrackError
func WrapError(kind ErrorKind, cause error, format string, args ...interface{}) *CrackError {
	return &CrackError{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of the first CrackError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var ce *CrackError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

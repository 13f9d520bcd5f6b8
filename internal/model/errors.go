package model

import (
	"errors"
	"fmt"
)

// ProcessingError is a classified pipeline failure. Every error that crosses
// the executor boundary carries a kind so the retry decision is mechanical.
type ProcessingError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a re-attempt could plausibly succeed.
// Only transient failures qualify; everything else recurs identically.
func (e *ProcessingError) Retryable() bool {
	return e.Kind == KindTransient
}

// NewProcessingError wraps err with a classification
func NewProcessingError(kind ErrorKind, message string, err error) *ProcessingError {
	return &ProcessingError{Kind: kind, Message: message, Err: err}
}

// Errorf builds a classified error from a format string
func Errorf(kind ErrorKind, format string, args ...interface{}) *ProcessingError {
	return &ProcessingError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ClassifyError extracts the classification from err, defaulting unclassified
// errors to Transient so unknown failures stay retryable rather than being
// declared dead on first sight.
func ClassifyError(err error) *ProcessingError {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProcessingError{Kind: KindTransient, Message: err.Error(), Err: err}
}

package engine

import (
	"errors"
	"strings"
)

// ErrKind classifies validation errors at the point they are raised, so
// retry decisions never depend on message text for errors we produce
// ourselves.
type ErrKind int

const (
	// KindTransient covers errors worth retrying: store hiccups, flaky
	// tooling, network failures.
	KindTransient ErrKind = iota

	// KindInvalidArtifact means the request itself is unusable: missing or
	// unknown artifact type, empty content.
	KindInvalidArtifact

	// KindSizeLimit means the artifact exceeds the configured size cap.
	KindSizeLimit

	// KindInvalidRuleConfig means an applicable rule is structurally broken.
	KindInvalidRuleConfig
)

// ValidationError is a classified engine error.
type ValidationError struct {
	Kind ErrKind
	msg  string
	err  error
}

func (e *ValidationError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *ValidationError) Unwrap() error { return e.err }

// NewError creates a classified validation error.
func NewError(kind ErrKind, msg string) *ValidationError {
	return &ValidationError{Kind: kind, msg: msg}
}

// WrapError classifies an underlying error.
func WrapError(kind ErrKind, msg string, err error) *ValidationError {
	return &ValidationError{Kind: kind, msg: msg, err: err}
}

// IsRetryable decides whether a validation attempt that failed with err is
// worth repeating. Classified errors are judged by kind. Foreign errors that
// cross the boundary without a kind fall back to substring checks against
// known non-retryable phrasings; everything unrecognized is retryable.
func IsRetryable(err error) bool {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Kind == KindTransient
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"invalid artifact type",
		"exceeds maximum allowed size",
		"invalid rule configuration",
	} {
		if strings.Contains(msg, marker) {
			return false
		}
	}
	return true
}

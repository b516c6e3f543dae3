// Copyright 2026, Square, Inc.

// Package errors provides the errors reported by traversal strategies, vertex
// programs and graph computers. Every error implements the error interface and
// returns a terse message; it is reported in context (e.g. by the API, which maps
// the concrete type to an error kind).
package errors

import (
	"errors"
	"fmt"
)

var (
	// Returned when a structural mutation is attempted on a locked traversal.
	ErrLocked = errors.New("traversal is locked and cannot be modified")
)

// Error kinds reported by the API and understood by remote clients.
const (
	KIND_CONFIGURATION = "configuration"
	KIND_VERIFICATION  = "verification"
	KIND_EXECUTION     = "execution"
	KIND_ILLEGAL_STATE = "illegal_state"
)

// --------------------------------------------------------------------------

var _ error = ConfigurationError{}

// ConfigurationError is unrecoverable: an unresolvable program, computer or
// strategy name, a missing required key, or conflicting strategy constraints.
type ConfigurationError struct {
	Key     string
	Message string
}

func NewConfigurationError(key, format string, args ...interface{}) ConfigurationError {
	return ConfigurationError{Key: key, Message: fmt.Sprintf(format, args...)}
}

func (e ConfigurationError) Error() string {
	if e.Key == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Key, e.Message)
}

// --------------------------------------------------------------------------

var _ error = VerificationError{}

// VerificationError is raised by a verification strategy that found an illegal
// construct. The traversal is left unlocked and unusable until it is changed.
type VerificationError struct {
	Strategy  string
	Message   string
	Traversal string
}

func (e VerificationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Strategy, e.Message, e.Traversal)
}

// --------------------------------------------------------------------------

var _ error = ExecutionError{}

// ExecutionError is a failure that happened while a traversal or a vertex
// program was running.
type ExecutionError struct {
	Message string
	Cause   error
}

func NewExecutionError(cause error, format string, args ...interface{}) ExecutionError {
	return ExecutionError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e ExecutionError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Cause)
}

func (e ExecutionError) Unwrap() error { return e.Cause }

// --------------------------------------------------------------------------

var _ error = IllegalStateError{}

// IllegalStateError wraps a failure that does not fit any other kind.
type IllegalStateError struct {
	Cause error
}

func (e IllegalStateError) Error() string {
	return fmt.Sprintf("illegal state: %s", e.Cause)
}

func (e IllegalStateError) Unwrap() error { return e.Cause }

// --------------------------------------------------------------------------

var _ error = NotFoundError{}

// NotFoundError is returned for an unknown computation id.
type NotFoundError struct {
	Entity string
	Id     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Id)
}

// --------------------------------------------------------------------------

// Kind returns the kind of err, defaulting to KIND_ILLEGAL_STATE.
func Kind(err error) string {
	var (
		cfg ConfigurationError
		ver VerificationError
		exe ExecutionError
	)
	switch {
	case errors.As(err, &cfg):
		return KIND_CONFIGURATION
	case errors.As(err, &ver):
		return KIND_VERIFICATION
	case errors.As(err, &exe):
		return KIND_EXECUTION
	}
	return KIND_ILLEGAL_STATE
}

package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable matches every failure of the rate provider: network
	// errors, non-2xx responses and malformed bodies.
	ErrUnavailable = errors.New("upstream unavailable")

	// ErrRateNotFound matches a well-formed response that lacks a requested symbol.
	ErrRateNotFound = errors.New("rate not found")
)

// ErrorClass represents a classification of upstream failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx and other non-2xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassMalformed represents a 2xx response whose body cannot be used.
	ErrorClassMalformed ErrorClass = "malformed"

	// ErrorClassNotFound represents a missing requested symbol.
	ErrorClassNotFound ErrorClass = "not_found"
)

// Error is a rate provider failure with additional context.
type Error struct {
	Operation  string
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("upstream %s %s error", e.Operation, e.Class)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports ErrUnavailable for every upstream error and ErrRateNotFound
// for the not_found class.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return true
	case ErrRateNotFound:
		return e.Class == ErrorClassNotFound
	default:
		return false
	}
}

package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedKind is returned when a submission carries no kind the
	// relay can publish.
	ErrUnsupportedKind = errors.New("unsupported content kind")

	// ErrMalformedToken is returned when a retraction token does not have
	// the expected shape.
	ErrMalformedToken = errors.New("malformed retraction token")

	// ErrNotFound is returned by the transport when the addressed message
	// no longer exists.
	ErrNotFound = errors.New("message not found")
)

// ValidationError reports malformed user input. It is recoverable by the
// user and answered with guidance.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// TransportError wraps a failed send, delete or edit.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "transport " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BackendError wraps a failure of the classifier or generator backend.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return "backend " + e.Backend + ": " + e.Err.Error()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// ErrorInfo holds structured failure information for log records.
type ErrorInfo struct {
	Op        string `json:"op"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	FailedAt  string `json:"failed_at"`
}

// ToJSON serializes ErrorInfo to a JSON string.
func (e ErrorInfo) ToJSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

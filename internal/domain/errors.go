package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for broad classification.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidConfig     = errors.New("invalid config")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrSessionExpired    = errors.New("session expired")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ErrorKind is a coarse-grained categorization for errors.
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindInvalidConfig ErrorKind = "invalid_config"
	KindExecution     ErrorKind = "execution"

	// Dispatcher taxonomy. Every failed network call surfaces exactly one of these.
	KindNetwork        ErrorKind = "network"
	KindAuthentication ErrorKind = "authentication"
	KindAPI            ErrorKind = "api"
	KindParse          ErrorKind = "parse"

	KindInvalidTransition ErrorKind = "invalid_transition"
)

// NetworkCause narrows a KindNetwork failure.
type NetworkCause string

const (
	CauseUnknown NetworkCause = "unknown"
	CauseTimeout NetworkCause = "timeout"
	CauseDNS     NetworkCause = "dns"
	CauseConn    NetworkCause = "connection"
)

// OpError wraps an underlying error with operation context and a kind.
type OpError struct {
	Op   string
	Kind ErrorKind
	Path string // Optional: request path or file path

	// Status is the HTTP status code when a response was obtained.
	Status int
	// Detail is the server-supplied message for KindAPI errors.
	Detail string
	// Cause is set for KindNetwork errors.
	Cause NetworkCause

	Err error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Status != 0 {
		base += fmt.Sprintf(" (status=%d)", e.Status)
	}
	if e.Detail != "" {
		base += ": " + e.Detail
	} else if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind helps callers classify errors without depending on infra packages.
func IsKind(err error, kind ErrorKind) bool {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}

// IsAuthentication reports whether err is terminal for the current session.
func IsAuthentication(err error) bool {
	return IsKind(err, KindAuthentication)
}

// DetailOf returns the server-supplied detail of an API error, or the error text.
func DetailOf(err error) string {
	if err == nil {
		return ""
	}
	var oe *OpError
	if errors.As(err, &oe) && oe.Detail != "" {
		return oe.Detail
	}
	return err.Error()
}

package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a setup failure by the remediation it calls for.
type ErrorKind int

const (
	// UnknownError is the zero value for errors that did not come from this
	// package.
	UnknownError ErrorKind = iota
	// EnvironmentError means the container runtime is missing or not running;
	// the user must act outside the app.
	EnvironmentError
	// TransientInfraError covers timeouts and temporary daemon
	// unresponsiveness; retry-eligible.
	TransientInfraError
	// ConflictError means a required port is held by a foreign process;
	// remediable via a confirmed kill.
	ConflictError
	// ConfigurationError covers invalid credentials or a missing compose
	// file; fails fast, no retry offered.
	ConfigurationError
	// VerificationError means a post-install check still fails; terminal,
	// names the missing items.
	VerificationError
)

func (k ErrorKind) String() string {
	switch k {
	case EnvironmentError:
		return "environment"
	case TransientInfraError:
		return "transient"
	case ConflictError:
		return "conflict"
	case ConfigurationError:
		return "configuration"
	case VerificationError:
		return "verification"
	default:
		return "unknown"
	}
}

// Error is the only error shape that crosses a component boundary. Raw exit
// codes and signals are translated into a kind plus a human explanation
// before they get here.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a typed error from a kind and a formatted message.
func E(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapErr attaches a kind and explanation to an underlying error.
func WrapErr(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from anywhere in an error chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnknownError
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

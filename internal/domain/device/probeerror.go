package device

import (
	"errors"
	"fmt"
)

// ProbeErrorKind classifies why a status probe failed. Each kind propagates
// distinctly so outcome messages can name the failure.
type ProbeErrorKind string

const (
	ProbeUnreachable       ProbeErrorKind = "unreachable"
	ProbeAuthFailed        ProbeErrorKind = "auth_failed"
	ProbeMalformedResponse ProbeErrorKind = "malformed_response"
	ProbeServerError       ProbeErrorKind = "server_error"
)

// Describe returns the human-readable form used in outcome messages.
func (k ProbeErrorKind) Describe() string {
	switch k {
	case ProbeUnreachable:
		return "device unreachable"
	case ProbeAuthFailed:
		return "authentication failed"
	case ProbeMalformedResponse:
		return "malformed response"
	case ProbeServerError:
		return "device server error"
	default:
		return string(k)
	}
}

// ProbeError is a failed status probe with its classification.
type ProbeError struct {
	Kind  ProbeErrorKind
	Cause error
}

func (e *ProbeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("probe failed (%s): %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("probe failed (%s)", e.Kind)
}

func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// NewProbeError wraps cause with a probe classification.
func NewProbeError(kind ProbeErrorKind, cause error) *ProbeError {
	return &ProbeError{Kind: kind, Cause: cause}
}

// AsProbeError extracts a ProbeError from err, or nil.
func AsProbeError(err error) *ProbeError {
	var pe *ProbeError
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}

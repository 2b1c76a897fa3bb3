package transport

import (
	"errors"
	"fmt"
)

// PermissionError reports an access-denial fault raised by the platform while
// a driver call was in flight. It is distinct from a proactive PermissionGate
// denial: the gate is consulted before a call, this error surfaces during one.
type PermissionError struct {
	Op     string // driver operation that faulted, e.g. "read characteristic"
	Detail string // platform-provided denial detail
}

// Error implements the error interface.
func (e *PermissionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Detail == "" {
		return fmt.Sprintf("%s: permission denied", e.Op)
	}
	return fmt.Sprintf("%s: permission denied: %s", e.Op, e.Detail)
}

// Is allows errors.Is comparison against any *PermissionError value.
func (e *PermissionError) Is(target error) bool {
	if e == nil {
		return false
	}
	_, ok := target.(*PermissionError)
	return ok
}

// AsPermissionError extracts a *PermissionError from err's chain, if any.
func AsPermissionError(err error) (*PermissionError, bool) {
	var perr *PermissionError
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

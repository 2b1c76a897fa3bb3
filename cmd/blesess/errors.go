package main

import (
	"context"
	"errors"

	"github.com/srg/blesession/transport"
)

// Command-level errors
var (
	// ErrNotReady indicates the connection never reached the ready state
	// within the allotted time.
	ErrNotReady = errors.New("device did not become ready")
)

// FormatUserError renders an error in a form suitable for end users,
// stripping driver internals where a plainer message exists.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}
	if perr, ok := transport.AsPermissionError(err); ok {
		if perr.Detail != "" {
			return "Bluetooth permission denied: " + perr.Detail
		}
		return "Bluetooth permission denied"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "operation timed out"
	}
	return err.Error()
}

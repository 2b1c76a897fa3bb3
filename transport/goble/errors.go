package goble

import (
	"strings"

	"github.com/srg/blesession/transport"
)

// normalizeError maps known go-ble error strings to structured transport
// errors. CoreBluetooth reports authorization loss through free-form error
// text, so matching is substring-based and case-insensitive to survive
// upstream message drift.
func normalizeError(op string, err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case containsIgnoreCase(msg, "not authorized"),
		containsIgnoreCase(msg, "not permitted"),
		containsIgnoreCase(msg, "access denied"),
		containsIgnoreCase(msg, "is Bluetooth turned on"),
		containsIgnoreCase(msg, "bluetooth is turned off"):
		return &transport.PermissionError{Op: op, Detail: msg}
	default:
		return err
	}
}

// containsIgnoreCase checks the substring case-insensitively
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

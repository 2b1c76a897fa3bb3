package transport

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"16-bit short form", "180d", "180d"},
		{"uppercase", "180D", "180d"},
		{"0x prefix", "0x180d", "180d"},
		{"SIG base with dashes", "0000180d-0000-1000-8000-00805f9b34fb", "180d"},
		{"SIG base without dashes", "0000180d00001000800000805f9b34fb", "180d"},
		{"custom 128-bit", "6e400001-b5a3-f393-e0a9-e50e24dcca9e", "6e400001b5a3f393e0a9e50e24dcca9e"},
		{"braces", "{0000180d-0000-1000-8000-00805f9b34fb}", "180d"},
		{"configuration descriptor", ClientCharacteristicConfigUUID, "2902"},
		{"garbage", "not-a-uuid", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeUUID(tt.input))
		})
	}
}

func TestValidateUUID(t *testing.T) {
	normalized, err := ValidateUUID("180D", "0x2a37")
	require.NoError(t, err)
	assert.Equal(t, []string{"180d", "2a37"}, normalized)

	_, err = ValidateUUID()
	assert.Error(t, err)

	_, err = ValidateUUID("180d", "")
	assert.Error(t, err)

	_, err = ValidateUUID("zz")
	assert.Error(t, err)
}

func TestNotificationEnableValueIsFresh(t *testing.T) {
	a := NotificationEnableValue()
	a[0] = 0xff

	assert.Equal(t, []byte{0x01, 0x00}, NotificationEnableValue())
}

func TestPermissionError(t *testing.T) {
	err := &PermissionError{Op: "scan", Detail: "bluetooth access revoked"}
	assert.Equal(t, "scan: permission denied: bluetooth access revoked", err.Error())

	wrapped := fmt.Errorf("driver: %w", err)
	perr, ok := AsPermissionError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "scan", perr.Op)

	assert.True(t, errors.Is(wrapped, &PermissionError{}))

	_, ok = AsPermissionError(errors.New("plain"))
	assert.False(t, ok)
}

func TestGateFunc(t *testing.T) {
	granted := false
	var gate PermissionGate = GateFunc(func() bool { return granted })

	assert.False(t, gate.HasRequiredCapabilities())
	granted = true
	assert.True(t, gate.HasRequiredCapabilities())
}

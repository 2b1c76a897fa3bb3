package goble

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srg/blesession/transport"
)

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		permission bool
	}{
		{name: "nil", err: nil},
		{
			name:       "core bluetooth not authorized",
			err:        errors.New("CBManagerStateUnauthorized: not authorized"),
			permission: true,
		},
		{
			name:       "operation not permitted",
			err:        errors.New("hci device: operation not permitted"),
			permission: true,
		},
		{
			name:       "bluetooth off",
			err:        errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?"),
			permission: true,
		},
		{
			name:       "case insensitive",
			err:        errors.New("ACCESS DENIED by policy"),
			permission: true,
		},
		{
			name: "unrelated error passes through",
			err:  errors.New("connection reset by peer"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeError("scan", tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}

			perr, ok := transport.AsPermissionError(got)
			if !tt.permission {
				assert.False(t, ok)
				assert.Equal(t, tt.err, got)
				return
			}
			assert.True(t, ok)
			assert.Equal(t, "scan", perr.Op)
			assert.Equal(t, tt.err.Error(), perr.Detail)
		})
	}
}

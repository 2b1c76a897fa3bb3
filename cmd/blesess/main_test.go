package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srg/blesession/transport"
)

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "v2", formatVersion("2"))
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "", formatVersion(""))
}

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "nil",
			err:  nil,
			want: "",
		},
		{
			name: "permission error with detail",
			err:  &transport.PermissionError{Op: "scan", Detail: "bluetooth access revoked"},
			want: "Bluetooth permission denied: bluetooth access revoked",
		},
		{
			name: "permission error without detail",
			err:  &transport.PermissionError{Op: "scan"},
			want: "Bluetooth permission denied",
		},
		{
			name: "wrapped permission error",
			err:  errors.Join(errors.New("outer"), &transport.PermissionError{Detail: "revoked"}),
			want: "Bluetooth permission denied: revoked",
		},
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: "operation timed out",
		},
		{
			name: "plain error",
			err:  errors.New("something broke"),
			want: "something broke",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUserError(tt.err))
		})
	}
}

func TestParsePayload(t *testing.T) {
	data, err := parsePayload("01ff", false)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0xff}, data)

	data, err = parsePayload("0x0A0b", false)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x0b}, data)

	data, err = parsePayload("hello", true)
	assert.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = parsePayload("zz", false)
	assert.Error(t, err)

	_, err = parsePayload("", false)
	assert.Error(t, err)
}

func TestAsciiPreview(t *testing.T) {
	assert.Equal(t, "Hi!", asciiPreview([]byte("Hi!")))
	assert.Equal(t, "a.b.", asciiPreview([]byte{'a', 0x00, 'b', 0xff}))
	assert.Equal(t, "", asciiPreview(nil))
}

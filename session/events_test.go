package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The reducer is the whole state machine; these tests pin every transition
// without a driver, queue, or goroutine in sight.
func TestReduce(t *testing.T) {
	h := &struct{}{}

	tests := []struct {
		name       string
		cur        ConnectionState
		ev         connEvent
		wantState  ConnectionState
		wantEffect effect
	}{
		{
			name:       "link up from connecting",
			cur:        StateConnecting(),
			ev:         linkUpEvent{handle: h},
			wantState:  StateConnected(false),
			wantEffect: effectDiscoverServices,
		},
		{
			name:       "link down from connecting",
			cur:        StateConnecting(),
			ev:         linkDownEvent{handle: h},
			wantState:  StateDisconnected(),
			wantEffect: effectReleaseHandle,
		},
		{
			name:       "link down after ready",
			cur:        StateConnected(true),
			ev:         linkDownEvent{handle: h},
			wantState:  StateDisconnected(),
			wantEffect: effectReleaseHandle,
		},
		{
			name:       "discovery success marks ready",
			cur:        StateConnected(false),
			ev:         discoveryDoneEvent{handle: h, ok: true},
			wantState:  StateConnected(true),
			wantEffect: effectNone,
		},
		{
			name:       "discovery failure",
			cur:        StateConnected(false),
			ev:         discoveryDoneEvent{handle: h, ok: false, code: 133},
			wantState:  StateError("Service discovery failed: 133"),
			wantEffect: effectNone,
		},
		{
			name:       "data leaves state untouched",
			cur:        StateConnected(true),
			ev:         dataEvent{handle: h, payload: []byte{1}},
			wantState:  StateConnected(true),
			wantEffect: effectPublishData,
		},
		{
			name:       "late link up after error still reconnects",
			cur:        StateError("Service discovery failed: 133"),
			ev:         linkUpEvent{handle: h},
			wantState:  StateConnected(false),
			wantEffect: effectDiscoverServices,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, eff := reduce(tt.cur, tt.ev)
			assert.Equal(t, tt.wantState, got)
			assert.Equal(t, tt.wantEffect, eff)
		})
	}
}

func TestConnectionStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected().String())
	assert.Equal(t, "connecting", StateConnecting().String())
	assert.Equal(t, "connected", StateConnected(false).String())
	assert.Equal(t, "connected (ready)", StateConnected(true).String())
	assert.Equal(t, "error: Scan failed: 2", StateError("Scan failed: %d", 2).String())
}

package main

import (
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/blesession/session"
)

// captureStdout runs fn with os.Stdout redirected to a pipe and returns what
// was written.
func captureStdout(t *testing.T, fn func() error) string {
	t.Helper()

	orig := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fnErr := fn()
	require.NoError(t, w.Close())
	require.NoError(t, fnErr)

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestDisplayResultsTable(t *testing.T) {
	results := []session.ScanResult{
		{ID: "AA:BB:CC:DD:EE:FF", Name: "HeartMonitor", RSSI: -42},
		{ID: "11:22:33:44:55:66", RSSI: -70},
	}

	out := captureStdout(t, func() error {
		return displayResultsTable(results)
	})

	assert.Contains(t, out, "HeartMonitor")
	assert.Contains(t, out, "AA:BB:CC:DD:EE:FF")
	assert.Contains(t, out, "-42 dBm")
	// Nameless peers render a placeholder
	assert.Contains(t, out, "(unknown)")
}

func TestDisplayResultsTable_Empty(t *testing.T) {
	out := captureStdout(t, func() error {
		return displayResultsTable(nil)
	})
	assert.Contains(t, out, "No devices discovered")
}

func TestDisplayResultsJSON(t *testing.T) {
	results := []session.ScanResult{
		{ID: "AA:BB:CC:DD:EE:FF", Name: "HeartMonitor", RSSI: -42},
	}

	out := captureStdout(t, func() error {
		return displayResultsJSON(results)
	})

	var rows []scanRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", rows[0].Address)
	assert.Equal(t, "HeartMonitor", rows[0].Name)
	assert.Equal(t, -42, rows[0].RSSI)
}

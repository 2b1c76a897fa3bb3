package testutils

import (
	"testing"
	"time"
)

// DefaultWait bounds how long tests wait for an asynchronous publication.
const DefaultWait = 2 * time.Second

// RecvWithin receives one value from ch or fails the test.
func RecvWithin[T any](t testing.TB, ch <-chan T, timeout time.Duration) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		var zero T
		t.Fatalf("timed out after %v waiting for a value", timeout)
		return zero
	}
}

// WaitFor receives from ch until pred matches, skipping intermediate values
// (the streams under test are conflated, so skipping is expected). Fails the
// test on timeout.
func WaitFor[T any](t testing.TB, ch <-chan T, pred func(T) bool, timeout time.Duration) T {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case v := <-ch:
			if pred(v) {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out after %v waiting for a matching value", timeout)
			return zero
		}
	}
}

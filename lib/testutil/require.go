// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// TB is the part of testing.TB the helpers need. Tests of the helpers
// themselves substitute a recorder.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive reads one value from ch within timeout, or fails the
// test. The timeout only guards against a hung goroutine; it is never
// how a test measures time.
//
//	outcome := testutil.RequireReceive(t, h.startCreate(ctx), 5*time.Second, "creating session")
func RequireReceive[T any](t TB, ch <-chan T, timeout time.Duration, msgAndArgs ...any) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without sending a value: %s", formatMessage(msgAndArgs))
		}
		return v
	case <-time.After(timeout): //nolint:realclock test hang prevention
		t.Fatalf("timed out after %v: %s", timeout, formatMessage(msgAndArgs))
	}
	var zero T
	return zero
}

// RequireClosed waits up to timeout for ch to be closed, for channels
// that signal by closing.
//
//	testutil.RequireClosed(t, server.acked, 5*time.Second, "message acknowledged")
func RequireClosed(t TB, ch <-chan struct{}, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout): //nolint:realclock test hang prevention
		t.Fatalf("timed out after %v waiting for channel close: %s", timeout, formatMessage(msgAndArgs))
	}
}

// RequireBlocked asserts that ch delivers nothing for the given window.
// Use it to check that a goroutine is still parked, for example on a
// fake-clock sleep that has not been advanced.
//
//	testutil.RequireBlocked(t, done, 20*time.Millisecond, "create returned before the retry interval")
func RequireBlocked[T any](t TB, ch <-chan T, window time.Duration, msgAndArgs ...any) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %v: %s", v, formatMessage(msgAndArgs))
	case <-time.After(window): //nolint:realclock bounded negative check
	}
}

// formatMessage renders the optional message: a single value, or a
// format string followed by its args.
func formatMessage(msgAndArgs []any) string {
	switch len(msgAndArgs) {
	case 0:
		return "(no message)"
	case 1:
		return fmt.Sprint(msgAndArgs[0])
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprint(msgAndArgs...)
}

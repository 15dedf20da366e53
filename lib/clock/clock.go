// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"context"
	"time"
)

// Clock abstracts the time operations used by the listener.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d has
	// elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// NewTimer returns a one-shot Timer that fires after d. Stopping the
	// timer releases it.
	NewTimer(d time.Duration) *Timer
}

// Timer is a one-shot timer. Read the fire time from C.
type Timer struct {
	// C receives the fire time. Buffered with capacity 1.
	C <-chan time.Time

	stopFunc func() bool
}

// Stop prevents the timer from firing. Returns true if the call stopped
// an active timer.
func (t *Timer) Stop() bool { return t.stopFunc() }

// Sleep waits for d on c, returning ctx.Err() as soon as ctx is done. A
// cancelled sleep returns without waiting out the remaining interval.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := c.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

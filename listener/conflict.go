// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package listener

import "time"

// ConflictTracker bounds how long session creation keeps retrying while
// another session holds the agent's identity. Conflicts only count while
// consecutive: the caller resets the tracker on success and on any other
// failure.
type ConflictTracker struct {
	interval time.Duration
	limit    time.Duration
	count    int
}

// NewConflictTracker returns a tracker for retries spaced interval apart,
// exhausted once the accumulated wait would pass limit.
func NewConflictTracker(interval, limit time.Duration) *ConflictTracker {
	return &ConflictTracker{interval: interval, limit: limit}
}

// Record counts one more conflict and reports whether the retry budget
// is exhausted. With a 30s interval and a 4m limit the first eight
// conflicts are retried and the ninth is exhausted.
func (t *ConflictTracker) Record() (exhausted bool) {
	t.count++
	return time.Duration(t.count)*t.interval > t.limit
}

// Reset clears the consecutive count.
func (t *ConflictTracker) Reset() { t.count = 0 }

// Count returns the number of consecutive conflicts recorded.
func (t *ConflictTracker) Count() int { return t.count }

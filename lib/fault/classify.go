// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fault

// Decision is the retry policy outcome for a failure.
type Decision int

const (
	// Retry sleeps the loop's fixed interval and tries again.
	Retry Decision = iota

	// Fatal stops the loop and surfaces the failure.
	Fatal

	// Recreate replaces the session and resumes polling without sleeping.
	Recreate

	// Abort stops the loop without treating the failure as an error.
	Abort
)

func (d Decision) String() string {
	switch d {
	case Retry:
		return "retry"
	case Fatal:
		return "fatal"
	case Recreate:
		return "recreate"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// SessionConflict is retriable here; the caller bounds it with a
// consecutive-conflict budget.
var createTable = map[Kind]Decision{
	Transient:       Retry,
	NotFound:        Fatal,
	PoolNotFound:    Fatal,
	SessionConflict: Retry,
	SessionExpired:  Retry,
	AccessDenied:    Fatal,
	Unauthorized:    Fatal,
	Cancelled:       Abort,
	Invalid:         Fatal,
}

var pollTable = map[Kind]Decision{
	Transient:       Retry,
	NotFound:        Fatal,
	PoolNotFound:    Fatal,
	SessionConflict: Retry,
	SessionExpired:  Recreate,
	AccessDenied:    Fatal,
	Unauthorized:    Fatal,
	Cancelled:       Abort,
	Invalid:         Fatal,
}

// ClassifyCreate returns the retry decision for a failed session-creation
// attempt.
func ClassifyCreate(kind Kind) Decision {
	return lookup(createTable, kind)
}

// ClassifyPoll returns the retry decision for a failed message fetch.
func ClassifyPoll(kind Kind) Decision {
	return lookup(pollTable, kind)
}

// Kinds outside the taxonomy are treated like any other unrecognized
// failure: retried.
func lookup(table map[Kind]Decision, kind Kind) Decision {
	if decision, ok := table[kind]; ok {
		return decision
	}
	return Retry
}

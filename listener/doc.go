// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package listener keeps a build agent registered with the orchestration
// server and pulls work from it.
//
// [SessionManager] establishes the agent's session. Creation retries at a
// fixed interval through transient failures, bounds how long it waits
// for a conflicting session held by another agent instance
// ([ConflictTracker]), and fails fast with [ErrSessionCreateFailed] when
// the server says the agent, its pool, or its credentials are no good.
//
// [MessagePoller] long-polls for messages under that session. It keeps a
// cursor of the last delivered message id so nothing is redelivered, and
// when the server expires the session it creates a new one inline and
// resumes polling with the cursor intact.
//
// [Run] drives both for the lifetime of the agent: stale-session cleanup,
// creation, the poll/dispatch/acknowledge loop, and teardown.
//
// Retry policy is not decided here. Every transport failure carries a
// [fault.Kind]; the loops look the kind up in [fault.ClassifyCreate] or
// [fault.ClassifyPoll] and act on the decision. Operators see one
// warning when an error streak starts and one notice when it ends
// (through a [notify.Sink]); every individual retry goes to the slog
// trace at debug level.
//
// Everything in this package runs on a single goroutine. Session and
// cursor state is unsynchronized.
package listener

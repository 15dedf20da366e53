// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fault defines the failure taxonomy shared by the agent's
// transport and its session/polling loops.
//
// Every error that crosses the transport boundary carries a [Kind] tag
// inside a [*Fault]. The retry loops never inspect concrete transport
// error types: they read the tag with [KindOf] and look it up in one of
// two pure tables, [ClassifyCreate] for session creation and
// [ClassifyPoll] for the message long-poll.
//
// Untagged errors are [Transient]. A context cancellation anywhere in the
// chain is [Cancelled], which callers check before classifying; the tables
// map it to [Abort] so they stay total.
package fault

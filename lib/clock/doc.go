// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for the agent's retry
// loops.
//
// Every wait between session-creation or message-poll attempts goes through
// [Sleep], which blocks on a [Timer] from the injected [Clock] and returns
// early when the context is cancelled. Production code uses [Real]; tests use
// [Fake], whose timers fire only when the test calls Advance.
//
// # Synchronizing tests with the fake clock
//
// A retry loop running in a goroutine registers its timer some time after the
// test starts it. Use WaitForTimers to block until the timer exists before
// advancing:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go func() { result <- manager.CreateSession(ctx, identity, capabilities) }()
//	fake.WaitForTimers(1)
//	fake.Advance(30 * time.Second)
//
// Stopped timers are removed from the pending set, so a sleep interrupted by
// cancellation never leaves a stale waiter behind.
package clock

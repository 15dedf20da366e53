// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify delivers single-line, human-facing notices from the
// agent's session and polling loops: connectivity warnings, recovery
// confirmations, and fatal errors. These are distinct from the slog
// diagnostic trace. A notice is something an operator watching the
// console should act on or be reassured by; the trace records every
// retry decision.
//
// [Terminal] writes timestamped, colored lines to a writer and drops
// color automatically when the writer is not a terminal. [Recorder]
// captures notices in memory for tests.
package notify

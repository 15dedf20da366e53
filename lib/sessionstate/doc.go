// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessionstate persists the agent's live server session so that a
// restarted agent can clean up after a crash.
//
// The session manager writes a [Record] after every successful session
// creation and clears it on teardown. If the agent dies without tearing
// down, the server keeps the old session alive and the next start would
// spend its conflict budget waiting for it to lapse. On startup the agent
// reads the record with [Read] and deletes the stale session first.
//
// Records are CBOR (lib/codec) and written atomically: temporary file,
// fsync, rename, parent directory fsync. Readers never see a partial file.
package sessionstate

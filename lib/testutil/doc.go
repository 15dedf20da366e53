// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for the build agent's
// packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls.
// [RequireBlocked] is the inverse: it asserts that nothing arrives on
// a channel, for checking that a retry loop is parked on a fake clock.
// These are the only place in the test suite where real wall-clock
// timeouts are used; retry intervals are driven by lib/clock's fake.
//
// [WriteFile] writes fixture files (config files, tokens, capability
// overrides) and creates parent directories.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, such as session ids handed out by a fake transport.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no Bureau-internal dependencies.
package testutil

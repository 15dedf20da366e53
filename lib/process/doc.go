// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process turns the error returned from a binary's run()
// function into a process exit. It is one of the few places allowed to
// write to stderr directly, because the structured logger may not exist
// yet (config failed to load) or may already be gone.
package process

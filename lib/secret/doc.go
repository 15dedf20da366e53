// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds the agent's bearer token and age identity outside
// the Go heap.
//
// A [Buffer] is an anonymous mmap region locked into RAM (mlock) and
// excluded from core dumps (MADV_DONTDUMP). Close zeroes, unlocks and
// unmaps it; any read after Close panics. [ReadFile] loads a secret file
// straight into a Buffer and zeroes the intermediate heap copy.
//
// Depends on golang.org/x/sys/unix only.
package secret

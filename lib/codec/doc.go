// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the agent's CBOR configuration for on-disk state.
//
// The wire protocol to the orchestration server is JSON; local state files
// (the persisted session record in lib/sessionstate) are CBOR. Encoding
// uses Core Deterministic Encoding (RFC 8949 §4.2), so the same record
// always produces the same bytes. Types tagged with `cbor` struct tags are
// only ever stored locally.
package codec

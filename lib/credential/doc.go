// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential loads the bearer token the agent presents to the
// orchestration server.
//
// [FileSource] reads the token from a file. When an age identity file is
// configured, the token file is treated as sealed (base64 age ciphertext,
// see lib/sealed) and decrypted with that identity. Either way the token
// ends up in a [secret.Buffer] inside [Credentials]; nothing else in the
// agent sees the raw bytes except the transport at header-construction time.
package credential

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts and decrypts agent token files with age x25519
// keys (filippo.io/age).
//
// A sealed token file holds base64-encoded age ciphertext. The agent
// decrypts it at startup with the machine's age identity; operators seal a
// token to one or more machine public keys with the `seal` command. Private
// keys and decrypted plaintext only ever live in [secret.Buffer] values.
package sealed

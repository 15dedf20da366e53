// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/buildagent/lib/sealed"
	"github.com/bureau-foundation/buildagent/lib/secret"
)

// Credentials is an opaque credential handle. Close releases the token.
type Credentials struct {
	token *secret.Buffer
}

// New wraps a token buffer. Credentials takes ownership of token.
func New(token *secret.Buffer) *Credentials {
	return &Credentials{token: token}
}

// AuthorizationHeader returns the value for the HTTP Authorization header.
func (c *Credentials) AuthorizationHeader() string {
	return "Bearer " + c.token.String()
}

// Close releases the token memory. Idempotent.
func (c *Credentials) Close() error {
	if c == nil || c.token == nil {
		return nil
	}
	return c.token.Close()
}

// Source produces credentials on demand.
type Source interface {
	Load() (*Credentials, error)
}

// FileSource loads a token from TokenFile. If IdentityFile is set, the
// token file is sealed with age and IdentityFile holds the private key.
type FileSource struct {
	TokenFile    string
	IdentityFile string
}

// Load reads and, if sealed, decrypts the token.
func (s FileSource) Load() (*Credentials, error) {
	if s.TokenFile == "" {
		return nil, fmt.Errorf("credential: token file is not configured")
	}

	if s.IdentityFile == "" {
		token, err := secret.ReadFile(s.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("credential: %w", err)
		}
		return New(token), nil
	}

	identity, err := secret.ReadFile(s.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("credential: loading age identity: %w", err)
	}
	defer identity.Close()

	ciphertext, err := os.ReadFile(s.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("credential: reading sealed token: %w", err)
	}
	token, err := sealed.Decrypt(string(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("credential: unsealing %s: %w", s.TokenFile, err)
	}
	return New(token), nil
}

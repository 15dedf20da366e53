// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/buildagent/lib/sealed"
)

func TestFileSourcePlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("plain-token\n"), 0600); err != nil {
		t.Fatal(err)
	}

	credentials, err := FileSource{TokenFile: path}.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer credentials.Close()

	if got, want := credentials.AuthorizationHeader(), "Bearer plain-token"; got != want {
		t.Errorf("AuthorizationHeader() = %q, want %q", got, want)
	}
}

func TestFileSourceSealed(t *testing.T) {
	directory := t.TempDir()
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer keypair.Close()

	identityPath := filepath.Join(directory, "machine.key")
	if err := os.WriteFile(identityPath, []byte(keypair.PrivateKey.String()+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	ciphertext, err := sealed.Encrypt([]byte("sealed-token"), []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	tokenPath := filepath.Join(directory, "token.age")
	if err := os.WriteFile(tokenPath, []byte(ciphertext), 0600); err != nil {
		t.Fatal(err)
	}

	credentials, err := FileSource{TokenFile: tokenPath, IdentityFile: identityPath}.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer credentials.Close()

	if got, want := credentials.AuthorizationHeader(), "Bearer sealed-token"; got != want {
		t.Errorf("AuthorizationHeader() = %q, want %q", got, want)
	}
}

func TestFileSourceErrors(t *testing.T) {
	if _, err := (FileSource{}).Load(); err == nil {
		t.Error("Load with no token file succeeded")
	}
	if _, err := (FileSource{TokenFile: filepath.Join(t.TempDir(), "missing")}).Load(); err == nil {
		t.Error("Load of missing token file succeeded")
	}
}

func TestCloseNil(t *testing.T) {
	var credentials *Credentials
	if err := credentials.Close(); err != nil {
		t.Errorf("Close on nil credentials = %v, want nil", err)
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitCoder is implemented by errors that carry their own exit code.
// The command that returned one has already reported the failure, so no
// message is printed.
type ExitCoder interface {
	ExitCode() int
}

// Exit exits with the code Code returns for err.
func Exit(err error) {
	os.Exit(Code(os.Stderr, err))
}

// Code reports err on stderr and returns the exit code for it: 0 for
// nil, the carried code for an ExitCoder, and 1 otherwise.
func Code(stderr io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var coder ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return 1
}

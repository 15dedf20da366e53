// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError ends the process with Code without printing anything more.
// Commands return it after writing their own report, for example when
// the check command finds the server unreachable.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode satisfies process.ExitCoder.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// bureau-build-agent holds a session with the orchestration server and
// runs the build jobs it delivers.
//
// Usage:
//
//	bureau-build-agent run [--config path] [--log-level level]
//	bureau-build-agent check [--config path]
//	bureau-build-agent seal --recipient age1... < token
//	bureau-build-agent version
//
// The config file path comes from --config or BUREAU_AGENT_CONFIG.
// SIGINT and SIGTERM stop the agent cleanly: the current poll is
// abandoned and the session is deleted before exit.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/buildagent/lib/process"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp(os.Stdin, os.Stdout, os.Stderr).root().Execute(ctx, os.Args[1:])
	stop()
	process.Exit(err)
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/buildagent/lib/notify"
	"github.com/bureau-foundation/buildagent/messaging"
)

// logDispatcher records each delivered message and reports it as
// handled. Job execution plugs in behind listener.Dispatcher.
type logDispatcher struct {
	logger   *slog.Logger
	notifier notify.Sink
}

func (d *logDispatcher) Dispatch(_ context.Context, message *messaging.AgentMessage) error {
	d.logger.Info("message received",
		"message_id", message.ID,
		"message_type", message.Type,
		"body_bytes", len(message.Body),
	)
	d.notifier.Info(fmt.Sprintf("Received %s message %d.", message.Type, message.ID))
	return nil
}

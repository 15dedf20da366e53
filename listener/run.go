// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package listener

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bureau-foundation/buildagent/lib/fault"
	"github.com/bureau-foundation/buildagent/messaging"
)

// ErrAgentDisabled is returned by Run for an identity that is not enabled.
var ErrAgentDisabled = errors.New("listener: agent is disabled")

// Dispatcher executes delivered messages.
type Dispatcher interface {
	Dispatch(ctx context.Context, message *messaging.AgentMessage) error
}

// RunConfig configures Run.
type RunConfig struct {
	Identity     Identity
	Capabilities map[string]string
	Sessions     *SessionManager
	Poller       *MessagePoller
	Dispatcher   Dispatcher
	// Logger is used for the diagnostic trace. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Run holds a session and feeds messages to the dispatcher until ctx is
// cancelled or a fatal failure occurs. Cancellation is a clean exit and
// returns nil; a fatal failure is returned as the session or poll error.
// The session is deleted on the way out either way.
//
// Every delivered message is acknowledged after dispatch, whether or not
// dispatch succeeded: the cursor has already moved past it, so it would
// not be redelivered to this session anyway. A dispatch cut short by
// cancellation is not acknowledged.
func Run(ctx context.Context, config RunConfig) error {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	identity := config.Identity
	if !identity.Enabled {
		return ErrAgentDisabled
	}

	if config.Sessions.RecoverStaleSession(ctx, identity) {
		logger.Info("stale session cleanup finished")
	}

	if _, err := config.Sessions.CreateSession(ctx, identity, config.Capabilities); err != nil {
		if fault.Is(err, fault.Cancelled) {
			return nil
		}
		return err
	}
	defer config.Sessions.DeleteSession(ctx)

	for {
		message, err := config.Poller.GetNextMessage(ctx)
		if err != nil {
			if fault.Is(err, fault.Cancelled) {
				logger.Info("listener stopping")
				return nil
			}
			return err
		}

		if err := config.Dispatcher.Dispatch(ctx, message); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("message dispatch failed",
				"message_id", message.ID,
				"message_type", message.Type,
				"error", err,
			)
		}

		if err := config.Poller.DeleteMessage(ctx, message.ID); err != nil {
			if fault.Is(err, fault.Cancelled) {
				return nil
			}
			logger.Warn("message acknowledge failed", "message_id", message.ID, "error", err)
		}
	}
}

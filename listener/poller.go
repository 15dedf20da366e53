// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/buildagent/lib/clock"
	"github.com/bureau-foundation/buildagent/lib/fault"
	"github.com/bureau-foundation/buildagent/lib/notify"
	"github.com/bureau-foundation/buildagent/messaging"
)

// DefaultPollRetryInterval is the wait between failed polls.
const DefaultPollRetryInterval = 15 * time.Second

// PollerConfig configures a MessagePoller.
type PollerConfig struct {
	// Transport reaches the server. Required; normally the same
	// transport the SessionManager uses.
	Transport Transport

	// Sessions provides the active session and recreates it on expiry.
	// Required.
	Sessions *SessionManager

	// Clock drives retry sleeps. If nil, clock.Real() is used.
	Clock clock.Clock

	// Notifier receives operator-facing notices. If nil, notices are
	// dropped.
	Notifier notify.Sink

	// Logger is used for the diagnostic trace. If nil, slog.Default() is used.
	Logger *slog.Logger

	// RetryInterval is the wait between failed polls.
	// Default: DefaultPollRetryInterval.
	RetryInterval time.Duration
}

type pollState int

const (
	statePolling pollState = iota
	stateRecreating
)

// MessagePoller long-polls the server for messages under the session
// held by a SessionManager. Not safe for concurrent use.
type MessagePoller struct {
	transport     Transport
	sessions      *SessionManager
	clock         clock.Clock
	notifier      notify.Sink
	logger        *slog.Logger
	retryInterval time.Duration

	// lastMessageID is the id of the last message returned by
	// GetNextMessage; meaningful only when hasCursor is set.
	lastMessageID int64
	hasCursor     bool

	encounteringError bool
}

// NewMessagePoller validates config and returns a MessagePoller.
func NewMessagePoller(config PollerConfig) (*MessagePoller, error) {
	if config.Transport == nil {
		return nil, errors.New("listener: Transport is required")
	}
	if config.Sessions == nil {
		return nil, errors.New("listener: Sessions is required")
	}

	poller := &MessagePoller{
		transport:     config.Transport,
		sessions:      config.Sessions,
		clock:         config.Clock,
		notifier:      config.Notifier,
		logger:        config.Logger,
		retryInterval: config.RetryInterval,
	}
	if poller.clock == nil {
		poller.clock = clock.Real()
	}
	if poller.notifier == nil {
		poller.notifier = notify.Discard{}
	}
	if poller.logger == nil {
		poller.logger = slog.Default()
	}
	if poller.retryInterval <= 0 {
		poller.retryInterval = DefaultPollRetryInterval
	}
	return poller, nil
}

// Cursor returns the id of the last message returned by GetNextMessage,
// and false if none has been returned yet.
func (p *MessagePoller) Cursor() (int64, bool) {
	return p.lastMessageID, p.hasCursor
}

// GetNextMessage blocks until the server delivers a message, a fatal
// failure occurs, or ctx is cancelled. Empty long-polls are repeated
// immediately. Retriable failures are retried every RetryInterval. An
// expired session is replaced through the SessionManager and polling
// continues from the same cursor; if replacement fails its error is
// returned unchanged. Other fatal faults are returned unwrapped.
//
// Returns ErrPreconditionFailed if the SessionManager has no session.
func (p *MessagePoller) GetNextMessage(ctx context.Context) (*messaging.AgentMessage, error) {
	const op = "listener: get message"

	session := p.sessions.Session()
	if session == nil || session.ID == "" {
		return nil, ErrPreconditionFailed
	}

	state := statePolling
	for {
		if err := ctx.Err(); err != nil {
			return nil, fault.New(fault.Cancelled, op, err)
		}

		if state == stateRecreating {
			expired := session.ID
			replacement, err := p.sessions.CreateSession(ctx, session.Identity, session.Capabilities)
			if err != nil {
				return nil, err
			}
			session = replacement
			state = statePolling
			p.logger.Info("session recreated after expiry",
				"expired_session_id", expired,
				"session_id", session.ID,
			)
			p.notifier.Info("Agent session expired; a new session was created.")
			continue
		}

		message, err := p.transport.GetAgentMessage(ctx, session.Identity.PoolID, session.ID, p.cursor())
		if err == nil {
			if message == nil {
				continue
			}
			// The cursor moves before anything else can fail.
			p.lastMessageID = message.ID
			p.hasCursor = true
			if p.encounteringError {
				p.encounteringError = false
				p.notifier.Info("Agent reconnected.")
			}
			p.logger.Debug("message received", "message_id", message.ID, "message_type", message.Type)
			return message, nil
		}

		kind := fault.KindOf(err)
		if kind == fault.Cancelled {
			return nil, cancelledFault(op, err)
		}

		decision := fault.ClassifyPoll(kind)
		switch decision {
		case fault.Recreate:
			p.logger.Warn("session expired", "session_id", session.ID, "error", err)
			state = stateRecreating
			continue
		case fault.Fatal:
			p.logger.Error("message poll failed", "kind", kind, "session_id", session.ID, "error", err)
			p.notifier.Error(pollFailureNotice(kind, session.Identity, err))
			return nil, err
		}

		p.logger.Debug("message poll failed, retrying",
			"kind", kind,
			"decision", decision,
			"retry_in", p.retryInterval,
			"error", err,
		)
		if !p.encounteringError {
			p.encounteringError = true
			p.notifier.Warn(fmt.Sprintf("Agent message poll error: %v. Retrying until reconnected.", err))
		}

		if err := clock.Sleep(ctx, p.clock, p.retryInterval); err != nil {
			return nil, fault.New(fault.Cancelled, op, err)
		}
	}
}

// DeleteMessage acknowledges messageID so the server does not deliver it
// again to any session.
func (p *MessagePoller) DeleteMessage(ctx context.Context, messageID int64) error {
	session := p.sessions.Session()
	if session == nil || session.ID == "" {
		return ErrPreconditionFailed
	}
	return p.transport.DeleteAgentMessage(ctx, session.Identity.PoolID, session.ID, messageID)
}

func (p *MessagePoller) cursor() *int64 {
	if !p.hasCursor {
		return nil
	}
	cursor := p.lastMessageID
	return &cursor
}

func pollFailureNotice(kind fault.Kind, identity Identity, err error) string {
	switch kind {
	case fault.NotFound:
		return fmt.Sprintf("Agent %d (%s) is no longer registered with the server. Reconfigure the agent.", identity.AgentID, identity.AgentName)
	case fault.PoolNotFound:
		return fmt.Sprintf("Agent pool %d was not found on the server. Reconfigure the agent.", identity.PoolID)
	case fault.AccessDenied, fault.Unauthorized:
		return fmt.Sprintf("The server rejected the agent's credentials: %v", err)
	default:
		return fmt.Sprintf("Message poll failed: %v", err)
	}
}

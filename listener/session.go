// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/buildagent/lib/capability"
	"github.com/bureau-foundation/buildagent/lib/clock"
	"github.com/bureau-foundation/buildagent/lib/credential"
	"github.com/bureau-foundation/buildagent/lib/fault"
	"github.com/bureau-foundation/buildagent/lib/notify"
	"github.com/bureau-foundation/buildagent/lib/sessionstate"
	"github.com/bureau-foundation/buildagent/messaging"
)

// Default intervals.
const (
	DefaultCreateRetryInterval = 30 * time.Second
	DefaultConflictRetryLimit  = 4 * time.Minute
	DefaultTeardownTimeout     = 30 * time.Second
)

// SessionConfig configures a SessionManager.
type SessionConfig struct {
	// Transport reaches the server. Required.
	Transport Transport

	// Credentials is loaded once per creation attempt; the loaded
	// credentials are handed to Transport.Connect. Required.
	Credentials credential.Source

	// Clock drives retry sleeps. If nil, clock.Real() is used.
	Clock clock.Clock

	// Notifier receives operator-facing notices. If nil, notices are
	// dropped.
	Notifier notify.Sink

	// Logger is used for the diagnostic trace. If nil, slog.Default() is used.
	Logger *slog.Logger

	// StatePath is where the live session record is written so a later
	// run can clean up after a crash. Empty disables the record.
	StatePath string

	// OwnerName is reported to the server as the session owner. Default:
	// "<hostname> (PID: <pid>)".
	OwnerName string

	// RetryInterval is the wait between creation attempts.
	// Default: DefaultCreateRetryInterval.
	RetryInterval time.Duration

	// ConflictRetryLimit bounds the cumulative wait on session conflicts.
	// Default: DefaultConflictRetryLimit.
	ConflictRetryLimit time.Duration

	// TeardownTimeout bounds DeleteSession and stale-session cleanup.
	// Default: DefaultTeardownTimeout.
	TeardownTimeout time.Duration
}

// SessionManager creates and deletes the agent's session. Not safe for
// concurrent use.
type SessionManager struct {
	transport       Transport
	credentials     credential.Source
	clock           clock.Clock
	notifier        notify.Sink
	logger          *slog.Logger
	statePath       string
	ownerName       string
	retryInterval   time.Duration
	teardownTimeout time.Duration

	conflicts *ConflictTracker
	session   *Session

	// encounteringError is set by the first retriable failure of a
	// streak and cleared by the next success.
	encounteringError bool
}

// NewSessionManager validates config and returns a SessionManager.
func NewSessionManager(config SessionConfig) (*SessionManager, error) {
	if config.Transport == nil {
		return nil, errors.New("listener: Transport is required")
	}
	if config.Credentials == nil {
		return nil, errors.New("listener: Credentials is required")
	}

	manager := &SessionManager{
		transport:       config.Transport,
		credentials:     config.Credentials,
		clock:           config.Clock,
		notifier:        config.Notifier,
		logger:          config.Logger,
		statePath:       config.StatePath,
		ownerName:       config.OwnerName,
		retryInterval:   config.RetryInterval,
		teardownTimeout: config.TeardownTimeout,
	}
	if manager.clock == nil {
		manager.clock = clock.Real()
	}
	if manager.notifier == nil {
		manager.notifier = notify.Discard{}
	}
	if manager.logger == nil {
		manager.logger = slog.Default()
	}
	if manager.ownerName == "" {
		hostname, _ := os.Hostname()
		manager.ownerName = fmt.Sprintf("%s (PID: %d)", hostname, os.Getpid())
	}
	if manager.retryInterval <= 0 {
		manager.retryInterval = DefaultCreateRetryInterval
	}
	if manager.teardownTimeout <= 0 {
		manager.teardownTimeout = DefaultTeardownTimeout
	}
	conflictLimit := config.ConflictRetryLimit
	if conflictLimit <= 0 {
		conflictLimit = DefaultConflictRetryLimit
	}
	manager.conflicts = NewConflictTracker(manager.retryInterval, conflictLimit)

	return manager, nil
}

// Session returns the active session, or nil.
func (m *SessionManager) Session() *Session { return m.session }

// ConflictCount returns the number of consecutive conflicts seen by the
// current creation streak.
func (m *SessionManager) ConflictCount() int { return m.conflicts.Count() }

// CreateSession registers a new session for identity, advertising
// capabilities. It retries until success, a fatal failure (returned
// wrapped in ErrSessionCreateFailed), or cancellation of ctx (returned
// as a Cancelled fault).
func (m *SessionManager) CreateSession(ctx context.Context, identity Identity, capabilities map[string]string) (*Session, error) {
	const op = "listener: create session"

	descriptor := messaging.SessionDescriptor{
		SessionName: uuid.NewString(),
		OwnerName:   m.ownerName,
		Agent: messaging.AgentReference{
			ID:            identity.AgentID,
			Name:          identity.AgentName,
			Version:       identity.Version,
			OSDescription: runtime.GOOS + " " + runtime.GOARCH,
			Enabled:       identity.Enabled,
		},
		Capabilities:       capabilities,
		CapabilitiesDigest: capability.Digest(capabilities),
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fault.New(fault.Cancelled, op, err)
		}

		issued, err := m.attemptCreate(ctx, identity, descriptor)
		if err == nil {
			m.conflicts.Reset()
			session := &Session{
				ID:           issued.SessionID,
				Name:         descriptor.SessionName,
				OwnerName:    descriptor.OwnerName,
				Identity:     identity,
				Capabilities: capabilities,
				CreatedAt:    m.clock.Now(),
			}
			m.session = session
			m.writeRecord(session)

			m.logger.Info("session created",
				"session_id", session.ID,
				"pool_id", identity.PoolID,
				"agent_id", identity.AgentID,
				"attempt", attempt,
			)
			if m.encounteringError {
				m.encounteringError = false
				m.notifier.Info("Agent reconnected.")
			}
			return session, nil
		}

		kind := fault.KindOf(err)
		if kind == fault.Cancelled {
			return nil, cancelledFault(op, err)
		}

		decision := fault.ClassifyCreate(kind)
		exhausted := false
		if kind == fault.SessionConflict {
			exhausted = m.conflicts.Record()
		} else {
			m.conflicts.Reset()
		}

		if decision == fault.Fatal || exhausted {
			m.logger.Error("session creation failed",
				"kind", kind,
				"attempt", attempt,
				"conflicts", m.conflicts.Count(),
				"error", err,
			)
			m.notifier.Error(createFailureNotice(kind, identity, m.conflicts.Count(), err))
			return nil, fmt.Errorf("%w: %w", ErrSessionCreateFailed, err)
		}

		m.logger.Debug("session creation failed, retrying",
			"kind", kind,
			"decision", decision,
			"attempt", attempt,
			"conflicts", m.conflicts.Count(),
			"retry_in", m.retryInterval,
			"error", err,
		)
		if !m.encounteringError {
			m.encounteringError = true
			m.notifier.Warn(fmt.Sprintf("Agent connect error: %v. Retrying until reconnected.", err))
		}

		if err := clock.Sleep(ctx, m.clock, m.retryInterval); err != nil {
			return nil, fault.New(fault.Cancelled, op, err)
		}
	}
}

// attemptCreate performs one connect + create round trip.
func (m *SessionManager) attemptCreate(ctx context.Context, identity Identity, descriptor messaging.SessionDescriptor) (*messaging.AgentSession, error) {
	credentials, err := m.credentials.Load()
	if err != nil {
		// A missing or undecryptable token is not going to fix itself.
		return nil, fault.New(fault.Unauthorized, "listener: load credentials", err)
	}
	if err := m.transport.Connect(ctx, identity.ServerURL, credentials); err != nil {
		return nil, err
	}
	return m.transport.CreateAgentSession(ctx, identity.PoolID, descriptor)
}

// DeleteSession ends the active session on the server. It is a no-op
// without a session. The delete runs under its own timeout, detached
// from ctx's cancellation, and its failure is logged and ignored. The
// session is forgotten either way.
func (m *SessionManager) DeleteSession(ctx context.Context) {
	session := m.session
	if session == nil || session.ID == "" {
		return
	}

	m.deleteRemote(ctx, session.Identity.PoolID, session.ID)
	m.session = nil
	m.clearRecord()
}

// RecoverStaleSession deletes a session left behind by a previous run of
// this agent that exited without tearing down, so the leftover session
// does not hold the identity against the next CreateSession. Reports
// whether a stale session was found. All failures are logged and
// ignored.
func (m *SessionManager) RecoverStaleSession(ctx context.Context, identity Identity) bool {
	if m.statePath == "" {
		return false
	}

	record, found, err := sessionstate.Read(m.statePath)
	if err != nil {
		m.logger.Warn("discarding unreadable session record", "path", m.statePath, "error", err)
		m.clearRecord()
		return false
	}
	if !found {
		return false
	}
	if !record.Matches(identity.ServerURL, identity.PoolID, identity.AgentID) {
		m.logger.Info("discarding session record for a different registration",
			"session_id", record.SessionID,
			"record_pool_id", record.PoolID,
			"record_agent_id", record.AgentID,
		)
		m.clearRecord()
		return false
	}

	m.logger.Info("deleting stale session from a previous run",
		"session_id", record.SessionID,
		"created_at", record.CreatedAt,
	)
	credentials, err := m.credentials.Load()
	if err != nil {
		m.logger.Debug("stale session cleanup: loading credentials failed", "error", err)
		return true
	}
	teardownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.teardownTimeout)
	defer cancel()
	if err := m.transport.Connect(teardownCtx, identity.ServerURL, credentials); err != nil {
		m.logger.Debug("stale session cleanup: connect failed", "error", err)
		return true
	}
	m.deleteRemote(ctx, identity.PoolID, record.SessionID)
	m.clearRecord()
	return true
}

func (m *SessionManager) deleteRemote(ctx context.Context, poolID int, sessionID string) {
	teardownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.teardownTimeout)
	defer cancel()

	if err := m.transport.DeleteAgentSession(teardownCtx, poolID, sessionID); err != nil {
		m.logger.Debug("session delete failed", "session_id", sessionID, "error", err)
		return
	}
	m.logger.Info("session deleted", "session_id", sessionID)
}

func (m *SessionManager) writeRecord(session *Session) {
	if m.statePath == "" {
		return
	}
	record := sessionstate.Record{
		SessionID: session.ID,
		PoolID:    session.Identity.PoolID,
		AgentID:   session.Identity.AgentID,
		ServerURL: session.Identity.ServerURL,
		CreatedAt: session.CreatedAt,
	}
	if err := sessionstate.Write(m.statePath, record); err != nil {
		m.logger.Warn("writing session record failed", "path", m.statePath, "error", err)
	}
}

func (m *SessionManager) clearRecord() {
	if m.statePath == "" {
		return
	}
	if err := sessionstate.Clear(m.statePath); err != nil {
		m.logger.Warn("clearing session record failed", "path", m.statePath, "error", err)
	}
}

// createFailureNotice is the operator-facing message for a fatal
// creation failure.
func createFailureNotice(kind fault.Kind, identity Identity, conflicts int, err error) string {
	switch kind {
	case fault.NotFound:
		return fmt.Sprintf("Agent %d (%s) is no longer registered with the server. Reconfigure the agent.", identity.AgentID, identity.AgentName)
	case fault.PoolNotFound:
		return fmt.Sprintf("Agent pool %d was not found on the server. Reconfigure the agent.", identity.PoolID)
	case fault.AccessDenied, fault.Unauthorized:
		return fmt.Sprintf("The server rejected the agent's credentials: %v", err)
	case fault.SessionConflict:
		return fmt.Sprintf("A session for agent %q is already in use by another agent process. Gave up after %d attempts.", identity.AgentName, conflicts)
	default:
		return fmt.Sprintf("Failed to create session: %v", err)
	}
}

// cancelledFault returns err if it already carries a fault tag, otherwise
// tags it Cancelled under op.
func cancelledFault(op string, err error) error {
	var tagged *fault.Fault
	if errors.As(err, &tagged) {
		return err
	}
	return fault.New(fault.Cancelled, op, err)
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package listener

import (
	"context"
	"errors"
	"time"

	"github.com/bureau-foundation/buildagent/lib/credential"
	"github.com/bureau-foundation/buildagent/messaging"
)

var (
	// ErrSessionCreateFailed is returned (wrapping the underlying fault)
	// when session creation hits a fatal failure.
	ErrSessionCreateFailed = errors.New("listener: session creation failed")

	// ErrPreconditionFailed is returned when an operation that needs an
	// active session is called without one. It indicates a caller bug.
	ErrPreconditionFailed = errors.New("listener: no active session")
)

// Identity is the agent's registration with the server.
type Identity struct {
	AgentID   int
	AgentName string
	Version   string
	PoolID    int
	ServerURL string
	Enabled   bool
}

// Session is a live session issued by the server. An empty ID means no
// session.
type Session struct {
	ID           string
	Name         string
	OwnerName    string
	Identity     Identity
	Capabilities map[string]string
	CreatedAt    time.Time
}

// Transport is the agent API as the session and polling loops use it.
// Every error must be a *fault.Fault, or is treated as transient.
// [messaging.Connection] is the production implementation.
type Transport interface {
	// Connect binds the transport to serverURL. The transport takes
	// ownership of credentials.
	Connect(ctx context.Context, serverURL string, credentials *credential.Credentials) error
	CreateAgentSession(ctx context.Context, poolID int, descriptor messaging.SessionDescriptor) (*messaging.AgentSession, error)
	DeleteAgentSession(ctx context.Context, poolID int, sessionID string) error
	// GetAgentMessage returns (nil, nil) when the long-poll times out
	// with nothing to deliver.
	GetAgentMessage(ctx context.Context, poolID int, sessionID string, lastMessageID *int64) (*messaging.AgentMessage, error)
	DeleteAgentMessage(ctx context.Context, poolID int, sessionID string, messageID int64) error
}

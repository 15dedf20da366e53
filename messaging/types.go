// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"
	"time"
)

// ConnectionData is the response of the connection check.
type ConnectionData struct {
	InstanceID    string `json:"instance_id"`
	ServerVersion string `json:"server_version"`
}

// AgentReference identifies the agent inside a session request.
type AgentReference struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Version       string `json:"version"`
	OSDescription string `json:"os_description"`
	Enabled       bool   `json:"enabled"`
}

// SessionDescriptor is the body of a session create request.
type SessionDescriptor struct {
	SessionName        string            `json:"session_name"`
	OwnerName          string            `json:"owner_name"`
	Agent              AgentReference    `json:"agent"`
	Capabilities       map[string]string `json:"capabilities"`
	CapabilitiesDigest string            `json:"capabilities_digest,omitempty"`
}

// AgentSession is a session as issued by the server.
type AgentSession struct {
	SessionID string         `json:"session_id"`
	Name      string         `json:"session_name"`
	OwnerName string         `json:"owner_name"`
	Agent     AgentReference `json:"agent"`
	CreatedAt time.Time      `json:"created_at"`
}

// AgentMessage is one unit of work delivered by the long-poll. Body is
// opaque to the transport and the polling loop.
type AgentMessage struct {
	ID   int64           `json:"message_id"`
	Type string          `json:"message_type"`
	Body json.RawMessage `json:"body"`
}

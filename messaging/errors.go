// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"fmt"
	"net/http"

	"github.com/bureau-foundation/buildagent/lib/fault"
)

// ServerError represents a structured error response from the server.
// Callers can use errors.As to extract the structured information:
//
//	var serverErr *ServerError
//	if errors.As(err, &serverErr) {
//	    if serverErr.Code == ErrCodeSessionConflict { ... }
//	}
type ServerError struct {
	// Code is the API error code (e.g., "SESSION_CONFLICT").
	Code string `json:"errcode"`
	// Message is the human-readable error description from the server.
	Message string `json:"error"`
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
}

func (e *ServerError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Agent API error codes.
const (
	ErrCodeAgentNotFound   = "AGENT_NOT_FOUND"
	ErrCodePoolNotFound    = "POOL_NOT_FOUND"
	ErrCodeSessionConflict = "SESSION_CONFLICT"
	ErrCodeSessionExpired  = "SESSION_EXPIRED"
	ErrCodeAccessDenied    = "ACCESS_DENIED"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
)

var codeKinds = map[string]fault.Kind{
	ErrCodeAgentNotFound:   fault.NotFound,
	ErrCodePoolNotFound:    fault.PoolNotFound,
	ErrCodeSessionConflict: fault.SessionConflict,
	ErrCodeSessionExpired:  fault.SessionExpired,
	ErrCodeAccessDenied:    fault.AccessDenied,
	ErrCodeUnauthorized:    fault.Unauthorized,
}

// Kind maps the error to a fault kind: the errcode when recognized,
// otherwise 401 and 403 by status, otherwise Transient.
func (e *ServerError) Kind() fault.Kind {
	if kind, ok := codeKinds[e.Code]; ok {
		return kind
	}
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return fault.Unauthorized
	case http.StatusForbidden:
		return fault.AccessDenied
	default:
		return fault.Transient
	}
}

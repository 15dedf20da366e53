// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fault

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies the category of a failure.
type Kind int

const (
	// Transient covers network errors, timeouts, server 5xx responses and
	// anything else without a more specific tag.
	Transient Kind = iota

	// NotFound means the agent is no longer registered with the server.
	NotFound

	// PoolNotFound means the agent's pool does not exist on the server.
	PoolNotFound

	// SessionConflict means another live session already holds this
	// agent identity.
	SessionConflict

	// SessionExpired means the server invalidated the agent's session.
	SessionExpired

	// AccessDenied means the credentials are valid but lack permission.
	AccessDenied

	// Unauthorized means the credentials were rejected.
	Unauthorized

	// Cancelled means the caller cancelled the operation.
	Cancelled

	// Invalid means the request could not be built or sent as asked: a
	// malformed server URL, missing credentials, or an unencodable body.
	// Retrying cannot change the outcome.
	Invalid
)

var kindNames = map[Kind]string{
	Transient:       "transient",
	NotFound:        "agent_not_found",
	PoolNotFound:    "pool_not_found",
	SessionConflict: "session_conflict",
	SessionExpired:  "session_expired",
	AccessDenied:    "access_denied",
	Unauthorized:    "unauthorized",
	Cancelled:       "cancelled",
	Invalid:         "invalid_request",
}

// String returns the snake_case name used in logs.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Fault is an error tagged with a Kind. Op names the operation that
// failed (e.g., "create session", "get message").
type Fault struct {
	Kind Kind
	Op   string
	Err  error
}

// New returns a Fault wrapping err.
func New(kind Kind, op string, err error) *Fault {
	return &Fault{Kind: kind, Op: op, Err: err}
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Op, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// KindOf returns the kind of err. Cancellation is detected first so a
// cancelled request is never mistaken for a network error. A nil error
// has no kind and reports Transient; callers only classify failures.
func KindOf(err error) Kind {
	if errors.Is(err, context.Canceled) {
		return Cancelled
	}
	var tagged *Fault
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return Transient
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

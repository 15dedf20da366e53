// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging is the HTTP/JSON client for the orchestration
// server's agent API: connection checks, session create and delete, the
// message long-poll, and message acknowledgement.
//
// [Connection] holds the server URL, the HTTP transport, and the bearer
// credentials installed by [Connection.Connect]. Every other call uses
// the credentials from the most recent successful Connect; Connect takes
// ownership of the credentials it is given and closes the previous set.
//
// Every failed call returns a [*fault.Fault] whose kind tells the
// session and polling loops what to do next. API errors carry a
// [*ServerError] with the server's errcode and HTTP status; the kind is
// derived from the errcode first and the status second. Network errors
// are transient, and a cancelled context produces a Cancelled fault.
//
// Request URLs are built by string concatenation rather than url.URL,
// matching the server's path layout exactly.
package messaging

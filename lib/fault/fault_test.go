// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"untagged error", io.ErrUnexpectedEOF, Transient},
		{"tagged fault", New(PoolNotFound, "create session", nil), PoolNotFound},
		{"wrapped fault", fmt.Errorf("outer: %w", New(SessionExpired, "get message", io.EOF)), SessionExpired},
		{"context canceled", context.Canceled, Cancelled},
		{"canceled inside transient fault", New(Transient, "get message", fmt.Errorf("request: %w", context.Canceled)), Cancelled},
		{"deadline exceeded", context.DeadlineExceeded, Transient},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := KindOf(test.err); got != test.want {
				t.Errorf("KindOf(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(NotFound, "create session", nil))
	if !Is(err, NotFound) {
		t.Error("Is(err, NotFound) = false, want true")
	}
	if Is(err, PoolNotFound) {
		t.Error("Is(err, PoolNotFound) = true, want false")
	}
	if Is(nil, Transient) {
		t.Error("Is(nil, Transient) = true, want false")
	}
}

func TestFaultUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := New(Transient, "connect", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is does not reach the wrapped cause")
	}
	if got, want := err.Error(), "connect: transient: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestClassifyCreate(t *testing.T) {
	tests := []struct {
		kind Kind
		want Decision
	}{
		{Transient, Retry},
		{NotFound, Fatal},
		{PoolNotFound, Fatal},
		{AccessDenied, Fatal},
		{Unauthorized, Fatal},
		{SessionConflict, Retry},
		{SessionExpired, Retry},
		{Cancelled, Abort},
		{Invalid, Fatal},
		{Kind(99), Retry},
	}
	for _, test := range tests {
		t.Run(test.kind.String(), func(t *testing.T) {
			if got := ClassifyCreate(test.kind); got != test.want {
				t.Errorf("ClassifyCreate(%v) = %v, want %v", test.kind, got, test.want)
			}
		})
	}
}

func TestClassifyPoll(t *testing.T) {
	tests := []struct {
		kind Kind
		want Decision
	}{
		{Transient, Retry},
		{NotFound, Fatal},
		{PoolNotFound, Fatal},
		{AccessDenied, Fatal},
		{Unauthorized, Fatal},
		{SessionConflict, Retry},
		{SessionExpired, Recreate},
		{Cancelled, Abort},
		{Invalid, Fatal},
	}
	for _, test := range tests {
		t.Run(test.kind.String(), func(t *testing.T) {
			if got := ClassifyPoll(test.kind); got != test.want {
				t.Errorf("ClassifyPoll(%v) = %v, want %v", test.kind, got, test.want)
			}
		})
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package listener

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/buildagent/lib/clock"
	"github.com/bureau-foundation/buildagent/lib/credential"
	"github.com/bureau-foundation/buildagent/lib/fault"
	"github.com/bureau-foundation/buildagent/lib/notify"
	"github.com/bureau-foundation/buildagent/lib/secret"
	"github.com/bureau-foundation/buildagent/lib/testutil"
	"github.com/bureau-foundation/buildagent/messaging"
)

// testIdentity is agent 5 in pool 1.
var testIdentity = Identity{
	AgentID:   5,
	AgentName: "builder-05",
	Version:   "1.4.0",
	PoolID:    1,
	ServerURL: "https://ci.example.com",
	Enabled:   true,
}

var testCapabilities = map[string]string{"Agent.OS": "linux", "go": "1.25"}

var epoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fail returns a transport fault of kind.
func fail(kind fault.Kind) error {
	return fault.New(kind, "fake", errors.New(kind.String()))
}

type pollResult struct {
	message *messaging.AgentMessage
	err     error
}

type pollCall struct {
	sessionID string
	cursor    *int64
}

// fakeTransport is a scripted Transport. Each create and poll consumes
// the next scripted result. Creates past the script succeed with a fresh
// session id; polls past the script block until ctx is cancelled.
type fakeTransport struct {
	mu sync.Mutex

	connectErrors []error
	createErrors  []error
	polls         []pollResult

	deleteSessionError error
	deleteMessageError error

	connects        int
	creates         int
	credentials     []*credential.Credentials
	sessionIDs      []string
	descriptors     []messaging.SessionDescriptor
	pollCalls       []pollCall
	deletedSessions []string
	// deleteContextLive records, per session delete, whether the context
	// was still live when the delete was issued.
	deleteContextLive []bool
	acknowledged      []int64
}

func (f *fakeTransport) Connect(ctx context.Context, serverURL string, credentials *credential.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	f.credentials = append(f.credentials, credentials)
	if len(f.connectErrors) > 0 {
		err := f.connectErrors[0]
		f.connectErrors = f.connectErrors[1:]
		return err
	}
	return nil
}

func (f *fakeTransport) CreateAgentSession(ctx context.Context, poolID int, descriptor messaging.SessionDescriptor) (*messaging.AgentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	f.descriptors = append(f.descriptors, descriptor)
	if len(f.createErrors) > 0 {
		err := f.createErrors[0]
		f.createErrors = f.createErrors[1:]
		if err != nil {
			return nil, err
		}
	}
	id := testutil.UniqueID("session")
	f.sessionIDs = append(f.sessionIDs, id)
	return &messaging.AgentSession{SessionID: id, Name: descriptor.SessionName}, nil
}

func (f *fakeTransport) DeleteAgentSession(ctx context.Context, poolID int, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedSessions = append(f.deletedSessions, sessionID)
	f.deleteContextLive = append(f.deleteContextLive, ctx.Err() == nil)
	return f.deleteSessionError
}

func (f *fakeTransport) GetAgentMessage(ctx context.Context, poolID int, sessionID string, lastMessageID *int64) (*messaging.AgentMessage, error) {
	f.mu.Lock()
	var cursor *int64
	if lastMessageID != nil {
		value := *lastMessageID
		cursor = &value
	}
	f.pollCalls = append(f.pollCalls, pollCall{sessionID: sessionID, cursor: cursor})
	if len(f.polls) > 0 {
		result := f.polls[0]
		f.polls = f.polls[1:]
		f.mu.Unlock()
		return result.message, result.err
	}
	f.mu.Unlock()

	<-ctx.Done()
	return nil, fault.New(fault.Cancelled, "fake", ctx.Err())
}

func (f *fakeTransport) DeleteAgentMessage(ctx context.Context, poolID int, sessionID string, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acknowledged = append(f.acknowledged, messageID)
	return f.deleteMessageError
}

func (f *fakeTransport) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

// tokenSource hands out fresh in-memory credentials.
type tokenSource struct {
	err error
}

func (s tokenSource) Load() (*credential.Credentials, error) {
	if s.err != nil {
		return nil, s.err
	}
	buffer, err := secret.NewFromString("test-token")
	if err != nil {
		return nil, err
	}
	return credential.New(buffer), nil
}

// harness wires a SessionManager and MessagePoller to a fake transport,
// fake clock, and notice recorder.
type harness struct {
	transport *fakeTransport
	clock     *clock.FakeClock
	notices   *notify.Recorder
	sessions  *SessionManager
	poller    *MessagePoller
}

func newHarness(t *testing.T, transport *fakeTransport, statePath string) *harness {
	t.Helper()
	h := &harness{
		transport: transport,
		clock:     clock.Fake(epoch),
		notices:   &notify.Recorder{},
	}
	t.Cleanup(func() {
		transport.mu.Lock()
		defer transport.mu.Unlock()
		for _, credentials := range transport.credentials {
			credentials.Close()
		}
	})

	var err error
	h.sessions, err = NewSessionManager(SessionConfig{
		Transport:   transport,
		Credentials: tokenSource{},
		Clock:       h.clock,
		Notifier:    h.notices,
		Logger:      discardLogger(),
		StatePath:   statePath,
		OwnerName:   "builder-05 (PID: 42)",
	})
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	h.poller, err = NewMessagePoller(PollerConfig{
		Transport: transport,
		Sessions:  h.sessions,
		Clock:     h.clock,
		Notifier:  h.notices,
		Logger:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewMessagePoller: %v", err)
	}
	return h
}

type createOutcome struct {
	session *Session
	err     error
}

// startCreate runs CreateSession on its own goroutine.
func (h *harness) startCreate(ctx context.Context) <-chan createOutcome {
	done := make(chan createOutcome, 1)
	go func() {
		session, err := h.sessions.CreateSession(ctx, testIdentity, testCapabilities)
		done <- createOutcome{session: session, err: err}
	}()
	return done
}

type pollOutcome struct {
	message *messaging.AgentMessage
	err     error
}

// startPoll runs GetNextMessage on its own goroutine.
func (h *harness) startPoll(ctx context.Context) <-chan pollOutcome {
	done := make(chan pollOutcome, 1)
	go func() {
		message, err := h.poller.GetNextMessage(ctx)
		done <- pollOutcome{message: message, err: err}
	}()
	return done
}

// advance steps through count retry sleeps of interval each, waiting for
// the loop to park on the clock before every step.
func (h *harness) advance(count int, interval time.Duration) {
	for range count {
		h.clock.WaitForTimers(1)
		h.clock.Advance(interval)
	}
}

// mustCreate creates a session with no scripted failures.
func (h *harness) mustCreate(t *testing.T) *Session {
	t.Helper()
	outcome := testutil.RequireReceive(t, h.startCreate(context.Background()), 5*time.Second, "creating session")
	if outcome.err != nil {
		t.Fatalf("CreateSession: %v", outcome.err)
	}
	return outcome.session
}

func message(id int64) *messaging.AgentMessage {
	return &messaging.AgentMessage{ID: id, Type: "JobRequest", Body: []byte(`{}`)}
}

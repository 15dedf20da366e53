// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/buildagent/lib/credential"
	"github.com/bureau-foundation/buildagent/lib/fault"
	"github.com/bureau-foundation/buildagent/lib/netutil"
	"github.com/bureau-foundation/buildagent/lib/version"
)

// ClientConfig holds configuration for creating a Connection.
type ClientConfig struct {
	// HTTPClient is used for all requests. If nil, http.DefaultClient is
	// used. The client's Timeout must exceed the server's long-poll hold
	// time or every idle poll fails as a transient error.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Connection is an agent API client bound to one server. The zero value
// is not usable; create one with [NewConnection].
type Connection struct {
	httpClient *http.Client
	logger     *slog.Logger

	mu          sync.Mutex
	baseURL     string
	credentials *credential.Credentials
}

// NewConnection creates a Connection. No request is made until Connect.
func NewConnection(config ClientConfig) *Connection {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Connection{
		httpClient: httpClient,
		logger:     logger,
	}
}

// Connect binds the connection to serverURL with credentials and checks
// that the server is reachable and accepts them. The connection takes
// ownership of credentials, even when Connect fails, and closes any
// previously installed set.
func (c *Connection) Connect(ctx context.Context, serverURL string, credentials *credential.Credentials) error {
	const op = "messaging: connect"
	if credentials == nil {
		return fault.New(fault.Unauthorized, op, errors.New("credentials are required"))
	}
	if _, err := url.Parse(serverURL); err != nil || serverURL == "" {
		credentials.Close()
		return fault.New(fault.Invalid, op, fmt.Errorf("invalid server URL %q", serverURL))
	}

	c.mu.Lock()
	previous := c.credentials
	c.baseURL = strings.TrimRight(serverURL, "/")
	c.credentials = credentials
	c.mu.Unlock()
	if previous != nil && previous != credentials {
		previous.Close()
	}

	_, err := c.ConnectionData(ctx)
	return err
}

// ConnectionData fetches the server's connection information.
func (c *Connection) ConnectionData(ctx context.Context) (*ConnectionData, error) {
	const op = "messaging: connect"
	body, _, err := c.doRequest(ctx, op, http.MethodGet, "/api/v1/connection", nil, nil)
	if err != nil {
		return nil, err
	}

	var data ConnectionData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fault.New(fault.Transient, op, fmt.Errorf("failed to parse connection response: %w", err))
	}
	return &data, nil
}

// CreateAgentSession registers a new session for the agent in pool.
func (c *Connection) CreateAgentSession(ctx context.Context, poolID int, descriptor SessionDescriptor) (*AgentSession, error) {
	const op = "messaging: create session"
	body, _, err := c.doRequest(ctx, op, http.MethodPost, poolPath(poolID, "sessions"), descriptor, nil)
	if err != nil {
		return nil, err
	}

	var session AgentSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fault.New(fault.Transient, op, fmt.Errorf("failed to parse session response: %w", err))
	}
	if session.SessionID == "" {
		return nil, fault.New(fault.Transient, op, errors.New("server returned a session without an id"))
	}

	c.logger.Debug("agent session created",
		"pool_id", poolID,
		"session_id", session.SessionID,
	)
	return &session, nil
}

// DeleteAgentSession ends a session on the server.
func (c *Connection) DeleteAgentSession(ctx context.Context, poolID int, sessionID string) error {
	const op = "messaging: delete session"
	_, _, err := c.doRequest(ctx, op, http.MethodDelete, poolPath(poolID, "sessions", url.PathEscape(sessionID)), nil, nil)
	return err
}

// GetAgentMessage long-polls for the next message after lastMessageID.
// A nil message with a nil error means the server's hold timed out with
// nothing to deliver.
func (c *Connection) GetAgentMessage(ctx context.Context, poolID int, sessionID string, lastMessageID *int64) (*AgentMessage, error) {
	const op = "messaging: get message"
	query := url.Values{"sessionId": {sessionID}}
	if lastMessageID != nil {
		query.Set("lastMessageId", strconv.FormatInt(*lastMessageID, 10))
	}

	body, status, err := c.doRequest(ctx, op, http.MethodGet, poolPath(poolID, "messages"), nil, query)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var message AgentMessage
	if err := json.Unmarshal(body, &message); err != nil {
		return nil, fault.New(fault.Transient, op, fmt.Errorf("failed to parse message: %w", err))
	}
	return &message, nil
}

// DeleteAgentMessage acknowledges a processed message so the server
// does not deliver it again.
func (c *Connection) DeleteAgentMessage(ctx context.Context, poolID int, sessionID string, messageID int64) error {
	const op = "messaging: delete message"
	query := url.Values{"sessionId": {sessionID}}
	path := poolPath(poolID, "messages", strconv.FormatInt(messageID, 10))
	_, _, err := c.doRequest(ctx, op, http.MethodDelete, path, nil, query)
	return err
}

// Close releases the installed credentials and idle connections.
func (c *Connection) Close() error {
	c.mu.Lock()
	credentials := c.credentials
	c.credentials = nil
	c.mu.Unlock()

	c.httpClient.CloseIdleConnections()
	return credentials.Close()
}

func poolPath(poolID int, segments ...string) string {
	return "/api/v1/pools/" + strconv.Itoa(poolID) + "/" + strings.Join(segments, "/")
}

// doRequest performs a JSON API request and returns the decoded response
// body and status. Every error is a *fault.Fault tagged for op.
func (c *Connection) doRequest(ctx context.Context, op, method, path string, requestBody any, query url.Values) ([]byte, int, error) {
	c.mu.Lock()
	baseURL := c.baseURL
	credentials := c.credentials
	c.mu.Unlock()
	if credentials == nil {
		return nil, 0, fault.New(fault.Unauthorized, op, errors.New("not connected"))
	}

	requestURL := baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, 0, fault.New(fault.Invalid, op, fmt.Errorf("failed to encode request body: %w", err))
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, 0, fault.New(fault.Invalid, op, fmt.Errorf("failed to create request: %w", err))
	}

	requestID := uuid.NewString()
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("Accept-Encoding", netutil.AcceptEncoding)
	request.Header.Set("Authorization", credentials.AuthorizationHeader())
	request.Header.Set("X-Request-ID", requestID)
	request.Header.Set("User-Agent", version.UserAgent())

	response, err := c.httpClient.Do(request)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, 0, fault.New(fault.Cancelled, op, err)
		}
		// A failed request may have left a poisoned connection in the
		// pool; make the next attempt dial fresh.
		c.httpClient.CloseIdleConnections()
		return nil, 0, fault.New(fault.Transient, op, fmt.Errorf("request to %s %s failed: %w", method, path, err))
	}
	defer response.Body.Close()

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		responseBody, err := netutil.ReadResponse(response)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, 0, fault.New(fault.Cancelled, op, err)
			}
			return nil, 0, fault.New(fault.Transient, op, fmt.Errorf("failed to read response body: %w", err))
		}
		return responseBody, response.StatusCode, nil
	}

	errorBody := netutil.ErrorBody(response)
	serverErr := &ServerError{StatusCode: response.StatusCode}
	if jsonErr := json.Unmarshal([]byte(errorBody), serverErr); jsonErr != nil {
		// Non-JSON error bodies come from proxies and load balancers
		// rather than the API itself.
		serverErr.Code = ""
		serverErr.Message = errorBody
	}

	c.logger.Debug("agent API request failed",
		"op", op,
		"method", method,
		"path", path,
		"status", response.StatusCode,
		"errcode", serverErr.Code,
		"request_id", requestID,
	)
	return nil, response.StatusCode, fault.New(serverErr.Kind(), op, serverErr)
}

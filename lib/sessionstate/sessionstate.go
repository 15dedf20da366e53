// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessionstate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/buildagent/lib/codec"
)

// FileName is the record's file name inside the agent state directory.
const FileName = "session.cbor"

// Record identifies a server session owned by this agent.
type Record struct {
	SessionID string    `cbor:"session_id"`
	PoolID    int       `cbor:"pool_id"`
	AgentID   int       `cbor:"agent_id"`
	ServerURL string    `cbor:"server_url"`
	CreatedAt time.Time `cbor:"created_at"`
}

// Matches reports whether the record belongs to the given agent
// registration. A record from a different server, pool or agent id is
// never acted on.
func (r Record) Matches(serverURL string, poolID, agentID int) bool {
	return r.ServerURL == serverURL && r.PoolID == poolID && r.AgentID == agentID
}

// Write atomically replaces the record at path. The parent directory must
// exist. The file mode is 0600.
func Write(path string, record Record) error {
	data, err := codec.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding session record: %w", err)
	}

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temporary session record: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary session record: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary session record: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary session record: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming session record into place: %w", err)
	}

	if directory, err := os.Open(filepath.Dir(path)); err == nil {
		directory.Sync()
		directory.Close()
	}
	return nil
}

// Read returns the record at path. The second result is false, with a nil
// error, when no record exists.
func Read(path string) (Record, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("reading session record: %w", err)
	}

	var record Record
	if err := codec.Unmarshal(data, &record); err != nil {
		return Record{}, false, fmt.Errorf("parsing session record %s: %w", path, err)
	}
	if record.SessionID == "" {
		return Record{}, false, nil
	}
	return record, true, nil
}

// Clear removes the record. Idempotent.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session record: %w", err)
	}
	return nil
}

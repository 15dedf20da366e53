// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/zeebo/blake3"
)

// Capability keys reported by host probing.
const (
	KeyAgentName      = "Agent.Name"
	KeyAgentVersion   = "Agent.Version"
	KeyOS             = "Agent.OS"
	KeyOSArchitecture = "Agent.OSArchitecture"
	KeyComputerName   = "Agent.ComputerName"
	KeyCPUModel       = "Agent.CPU.Model"
	KeyCPUCount       = "Agent.CPU.Count"
	KeyMemoryMB       = "Agent.MemoryMB"
	KeyKernelVersion  = "Agent.KernelVersion"
)

// Agent is the identity information discovery folds into the
// capability set.
type Agent struct {
	Name    string
	Version string
}

// Discover probes the host and merges the user capabilities declared in
// overridesPath (skipped when empty). User capabilities replace probed
// values of the same key, except the agent name and version which
// always come from the agent's identity.
func Discover(ctx context.Context, agent Agent, overridesPath string) (map[string]string, error) {
	return discoverFrom(ctx, agent, overridesPath, "/proc")
}

func discoverFrom(ctx context.Context, agent Agent, overridesPath, procRoot string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	capabilities := map[string]string{
		KeyOS:             runtime.GOOS,
		KeyOSArchitecture: runtime.GOARCH,
		KeyCPUCount:       strconv.Itoa(runtime.NumCPU()),
	}
	if hostname, err := os.Hostname(); err == nil {
		capabilities[KeyComputerName] = hostname
	}
	if model := readCPUModel(filepath.Join(procRoot, "cpuinfo")); model != "" {
		capabilities[KeyCPUModel] = model
	}
	if memoryMB := probeMemoryMB(); memoryMB > 0 {
		capabilities[KeyMemoryMB] = strconv.Itoa(memoryMB)
	}
	if release := readKernelVersion(); release != "" {
		capabilities[KeyKernelVersion] = release
	}

	if overridesPath != "" {
		user, err := ReadOverrides(overridesPath)
		if err != nil {
			return nil, err
		}
		for key, value := range user {
			capabilities[key] = value
		}
	}

	capabilities[KeyAgentName] = agent.Name
	capabilities[KeyAgentVersion] = agent.Version
	return capabilities, nil
}

// ReadOverrides reads a JSONC object of user capabilities. Values may be
// strings, numbers, or booleans; all are converted to their string form.
func ReadOverrides(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading capabilities file: %w", err)
	}
	capabilities, err := ParseOverrides(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return capabilities, nil
}

// ParseOverrides strips JSONC comments and trailing commas from data and
// decodes the resulting object.
func ParseOverrides(data []byte) (map[string]string, error) {
	var raw map[string]any
	decoder := json.NewDecoder(strings.NewReader(string(jsonc.ToJSON(data))))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing capabilities: %w", err)
	}

	capabilities := make(map[string]string, len(raw))
	for key, value := range raw {
		if strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("capability with empty name")
		}
		switch typed := value.(type) {
		case string:
			capabilities[key] = typed
		case json.Number:
			capabilities[key] = typed.String()
		case bool:
			capabilities[key] = strconv.FormatBool(typed)
		default:
			return nil, fmt.Errorf("capability %q: value must be a string, number, or boolean", key)
		}
	}
	return capabilities, nil
}

// digestKey domain-separates capability digests from any other BLAKE3
// use. ASCII "bureau.agent.capabilities" zero-padded to 32 bytes.
var digestKey = [32]byte{
	'b', 'u', 'r', 'e', 'a', 'u', '.', 'a', 'g', 'e', 'n', 't', '.',
	'c', 'a', 'p', 'a', 'b', 'i', 'l', 'i', 't', 'i', 'e', 's',
}

// Digest returns the hex-encoded BLAKE3 keyed hash of capabilities. The
// digest is independent of map iteration order: entries are hashed
// sorted by key, each as key NUL value NUL.
func Digest(capabilities map[string]string) string {
	keys := make([]string, 0, len(capabilities))
	for key := range capabilities {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	hasher, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		panic("capability: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	for _, key := range keys {
		hasher.WriteString(key)
		hasher.Write([]byte{0})
		hasher.WriteString(capabilities[key])
		hasher.Write([]byte{0})
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

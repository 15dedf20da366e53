// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package capability discovers the capability set an agent advertises
// when it creates a session. The server matches queued jobs against
// these key/value pairs, so keys are stable strings ("Agent.OS",
// "Agent.CPU.Count") and values are always strings.
//
// [Discover] combines host probing (hostname, OS, architecture, CPU
// model and count, memory, kernel release) with user-declared
// capabilities from an optional JSONC file:
//
//	{
//	    // Toolchains installed on this machine.
//	    "go": "1.25",
//	    "docker": true,
//	    "gpu.count": 2,
//	}
//
// [Digest] returns a BLAKE3 keyed digest of a capability set, sent
// alongside it so the server can cheaply detect when an agent's
// capabilities changed between sessions.
package capability

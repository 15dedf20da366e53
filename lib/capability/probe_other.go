// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package capability

// Host probing beyond what the runtime package reports is Linux-only.

func readCPUModel(string) string { return "" }

func readKernelVersion() string { return "" }

func probeMemoryMB() int { return 0 }

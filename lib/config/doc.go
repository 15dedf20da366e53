// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the build agent's configuration file.
//
// Configuration is loaded from a single file specified by either the
// BUREAU_AGENT_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks and no automatic file
// search. The file format follows the extension: .yaml and .yml are
// parsed as YAML, .toml as TOML. Both formats use the same field names.
//
// The file may contain environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${BUREAU_AGENT_STATE}, and ${VAR:-default} patterns are
// expanded. No environment variable overrides a config value.
//
// Durations are written as Go duration strings ("30s", "4m") and parsed
// by [SessionConfig.Timings].
//
// This package depends on no other Bureau packages.
package config

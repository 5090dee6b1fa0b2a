// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Ralphtown.
//
// Configuration is loaded from a single file specified by either the
// RALPHTOWN_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks, no ~/.config
// discovery, and no automatic file search. This keeps configuration
// deterministic and auditable with no hidden overrides.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values.
//
// Key exports:
//
//   - [Config] -- listen address, database path, ingest socket, hub tuning
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other Ralphtown packages.
package config

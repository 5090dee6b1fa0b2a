// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for the Ralphtown daemon.
type Config struct {
	// Listen is the address the HTTP server binds to.
	Listen string `yaml:"listen"`

	// DatabasePath is the SQLite database file. The parent directory
	// must exist; the file is created on first open.
	DatabasePath string `yaml:"database_path"`

	// IngestSocket is the unix socket path the session watcher
	// connects to for streaming output and status records.
	IngestSocket string `yaml:"ingest_socket"`

	// TopicCapacity is the per-subscriber event buffer size. Zero
	// means the hub default. Subscribers that fall more than this
	// many events behind lose the oldest ones.
	TopicCapacity int `yaml:"topic_capacity"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with development defaults. Path fields are
// already expanded, so the result is usable without a config file.
func Default() *Config {
	cfg := &Config{
		Listen:        "127.0.0.1:8420",
		DatabasePath:  "${HOME}/.local/share/ralphtown/ralphtown.db",
		IngestSocket:  "${HOME}/.local/share/ralphtown/ingest.sock",
		TopicCapacity: 0,
		LogLevel:      "info",
	}
	cfg.expandPaths()
	return cfg
}

// Load reads configuration from the file named by the RALPHTOWN_CONFIG
// environment variable. When the variable is unset it returns an error;
// callers that want defaults should use [Default] explicitly.
func Load() (*Config, error) {
	path := os.Getenv("RALPHTOWN_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("RALPHTOWN_CONFIG environment variable not set")
	}
	return LoadFile(path)
}

// LoadFile reads configuration from the given path. Fields absent from
// the file keep their [Default] values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that required fields are present and well formed.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.IngestSocket == "" {
		return fmt.Errorf("ingest_socket is required")
	}
	if c.TopicCapacity < 0 {
		return fmt.Errorf("topic_capacity must not be negative, got %d", c.TopicCapacity)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}

// varPattern matches ${VAR} and ${VAR:-default} references.
var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// expandPaths expands environment variable references in path fields.
func (c *Config) expandPaths() {
	c.DatabasePath = expandVars(c.DatabasePath)
	c.IngestSocket = expandVars(c.IngestSocket)
}

func expandVars(value string) string {
	return varPattern.ReplaceAllStringFunc(value, func(match string) string {
		groups := varPattern.FindStringSubmatch(match)
		name, fallback := groups[1], groups[2]
		if resolved, ok := os.LookupEnv(name); ok {
			return resolved
		}
		return fallback
	})
}

// String renders the configuration for startup logging, one field per
// line. There are no secrets in this config, so nothing is redacted.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "listen: %s\n", c.Listen)
	fmt.Fprintf(&b, "database_path: %s\n", c.DatabasePath)
	fmt.Fprintf(&b, "ingest_socket: %s\n", c.IngestSocket)
	fmt.Fprintf(&b, "topic_capacity: %d\n", c.TopicCapacity)
	fmt.Fprintf(&b, "log_level: %s", c.LogLevel)
	return b.String()
}

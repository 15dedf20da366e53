// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable [Load] reads the config path from.
const EnvironmentVariable = "BUREAU_AGENT_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the build agent's configuration.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment" toml:"environment"`

	// Agent identifies this agent to the orchestration server.
	Agent AgentConfig `yaml:"agent" toml:"agent"`

	// Paths configures file and directory locations.
	Paths PathsConfig `yaml:"paths" toml:"paths"`

	// Credentials configures where the bearer token is read from.
	Credentials CredentialsConfig `yaml:"credentials" toml:"credentials"`

	// Session configures retry intervals and limits.
	Session SessionConfig `yaml:"session" toml:"session"`

	// Log configures the diagnostic logger.
	Log LogConfig `yaml:"log" toml:"log"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty" toml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty" toml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty" toml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
// Only non-empty values override. agent.enabled cannot be overridden.
type ConfigOverrides struct {
	Agent       *AgentConfig       `yaml:"agent,omitempty" toml:"agent,omitempty"`
	Paths       *PathsConfig       `yaml:"paths,omitempty" toml:"paths,omitempty"`
	Credentials *CredentialsConfig `yaml:"credentials,omitempty" toml:"credentials,omitempty"`
	Session     *SessionConfig     `yaml:"session,omitempty" toml:"session,omitempty"`
	Log         *LogConfig         `yaml:"log,omitempty" toml:"log,omitempty"`
}

// AgentConfig is the agent's registration with the server.
type AgentConfig struct {
	// ID is the agent id assigned at registration.
	ID int `yaml:"id" toml:"id"`

	// Name is the agent's display name. Default: the hostname.
	Name string `yaml:"name" toml:"name"`

	// PoolID is the agent pool the agent was registered into.
	PoolID int `yaml:"pool_id" toml:"pool_id"`

	// ServerURL is the orchestration server's base URL.
	ServerURL string `yaml:"server_url" toml:"server_url"`

	// Enabled reports whether the agent accepts work. A disabled agent
	// refuses to start.
	// Default: true
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// PathsConfig configures file and directory locations.
type PathsConfig struct {
	// State is where the session record is kept between runs.
	State string `yaml:"state" toml:"state"`

	// CapabilitiesFile is an optional JSONC file of user-declared
	// capabilities.
	CapabilitiesFile string `yaml:"capabilities_file" toml:"capabilities_file"`
}

// CredentialsConfig configures where the bearer token comes from.
type CredentialsConfig struct {
	// TokenFile holds the bearer token, or its age ciphertext when
	// IdentityFile is set.
	TokenFile string `yaml:"token_file" toml:"token_file"`

	// IdentityFile is an age private key used to decrypt TokenFile.
	IdentityFile string `yaml:"identity_file" toml:"identity_file"`
}

// SessionConfig holds the retry intervals and limits of the session and
// polling loops, as Go duration strings.
type SessionConfig struct {
	// CreateRetryInterval is the wait between session creation attempts.
	// Default: 30s
	CreateRetryInterval string `yaml:"create_retry_interval" toml:"create_retry_interval"`

	// ConflictRetryLimit is the cumulative wait after which repeated
	// session conflicts become fatal.
	// Default: 4m
	ConflictRetryLimit string `yaml:"conflict_retry_limit" toml:"conflict_retry_limit"`

	// PollRetryInterval is the wait between failed message polls.
	// Default: 15s
	PollRetryInterval string `yaml:"poll_retry_interval" toml:"poll_retry_interval"`

	// TeardownTimeout bounds the session delete on shutdown.
	// Default: 30s
	TeardownTimeout string `yaml:"teardown_timeout" toml:"teardown_timeout"`
}

// Timings is SessionConfig with its durations parsed.
type Timings struct {
	CreateRetryInterval time.Duration
	ConflictRetryLimit  time.Duration
	PollRetryInterval   time.Duration
	TeardownTimeout     time.Duration
}

// LogConfig configures the diagnostic logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level" toml:"level"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// The config file is still required: the agent and pool ids and the
// server URL have no defaults.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	hostname, _ := os.Hostname()

	return &Config{
		Environment: Development,
		Agent: AgentConfig{
			Name:    hostname,
			Enabled: true,
		},
		Paths: PathsConfig{
			State: filepath.Join(homeDir, ".cache", "bureau", "build-agent"),
		},
		Session: SessionConfig{
			CreateRetryInterval: "30s",
			ConflictRetryLimit:  "4m",
			PollRetryInterval:   "15s",
			TeardownTimeout:     "30s",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the BUREAU_AGENT_CONFIG environment
// variable. There are no fallbacks: if the variable is not set, this
// fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your agent config file, or use --config flag", EnvironmentVariable)
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile decodes a single configuration file into c, choosing the
// decoder by file extension.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch extension := strings.ToLower(filepath.Ext(path)); extension {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config file %s: unsupported extension %q (want .yaml, .yml, or .toml)", path, extension)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Agent != nil {
		if overrides.Agent.ID != 0 {
			c.Agent.ID = overrides.Agent.ID
		}
		if overrides.Agent.Name != "" {
			c.Agent.Name = overrides.Agent.Name
		}
		if overrides.Agent.PoolID != 0 {
			c.Agent.PoolID = overrides.Agent.PoolID
		}
		if overrides.Agent.ServerURL != "" {
			c.Agent.ServerURL = overrides.Agent.ServerURL
		}
	}

	if overrides.Paths != nil {
		if overrides.Paths.State != "" {
			c.Paths.State = overrides.Paths.State
		}
		if overrides.Paths.CapabilitiesFile != "" {
			c.Paths.CapabilitiesFile = overrides.Paths.CapabilitiesFile
		}
	}

	if overrides.Credentials != nil {
		if overrides.Credentials.TokenFile != "" {
			c.Credentials.TokenFile = overrides.Credentials.TokenFile
		}
		if overrides.Credentials.IdentityFile != "" {
			c.Credentials.IdentityFile = overrides.Credentials.IdentityFile
		}
	}

	if overrides.Session != nil {
		if overrides.Session.CreateRetryInterval != "" {
			c.Session.CreateRetryInterval = overrides.Session.CreateRetryInterval
		}
		if overrides.Session.ConflictRetryLimit != "" {
			c.Session.ConflictRetryLimit = overrides.Session.ConflictRetryLimit
		}
		if overrides.Session.PollRetryInterval != "" {
			c.Session.PollRetryInterval = overrides.Session.PollRetryInterval
		}
		if overrides.Session.TeardownTimeout != "" {
			c.Session.TeardownTimeout = overrides.Session.TeardownTimeout
		}
	}

	if overrides.Log != nil && overrides.Log.Level != "" {
		c.Log.Level = overrides.Log.Level
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Paths.State = expandVars(c.Paths.State, vars)
	vars["BUREAU_AGENT_STATE"] = c.Paths.State // Update for dependent paths.

	c.Paths.CapabilitiesFile = expandVars(c.Paths.CapabilitiesFile, vars)
	c.Credentials.TokenFile = expandVars(c.Credentials.TokenFile, vars)
	c.Credentials.IdentityFile = expandVars(c.Credentials.IdentityFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Timings parses the session durations.
func (s SessionConfig) Timings() (Timings, error) {
	var timings Timings
	var errs []error
	for _, field := range []struct {
		name   string
		value  string
		target *time.Duration
	}{
		{"session.create_retry_interval", s.CreateRetryInterval, &timings.CreateRetryInterval},
		{"session.conflict_retry_limit", s.ConflictRetryLimit, &timings.ConflictRetryLimit},
		{"session.poll_retry_interval", s.PollRetryInterval, &timings.PollRetryInterval},
		{"session.teardown_timeout", s.TeardownTimeout, &timings.TeardownTimeout},
	} {
		duration, err := time.ParseDuration(field.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field.name, err))
			continue
		}
		if duration <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", field.name, field.value))
			continue
		}
		*field.target = duration
	}
	if len(errs) > 0 {
		return Timings{}, errors.Join(errs...)
	}
	return timings, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Agent.ID <= 0 {
		errs = append(errs, fmt.Errorf("agent.id must be positive"))
	}
	if c.Agent.PoolID <= 0 {
		errs = append(errs, fmt.Errorf("agent.pool_id must be positive"))
	}
	if c.Agent.Name == "" {
		errs = append(errs, fmt.Errorf("agent.name is required"))
	}
	if c.Agent.ServerURL == "" {
		errs = append(errs, fmt.Errorf("agent.server_url is required"))
	} else if parsed, err := url.Parse(c.Agent.ServerURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("agent.server_url %q is not an absolute URL", c.Agent.ServerURL))
	}

	if c.Paths.State == "" {
		errs = append(errs, fmt.Errorf("paths.state is required"))
	}
	if c.Credentials.TokenFile == "" {
		errs = append(errs, fmt.Errorf("credentials.token_file is required"))
	}

	if _, err := c.Session.Timings(); err != nil {
		errs = append(errs, err)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of: debug, info, warn, error"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the state directory if it doesn't exist.
func (c *Config) EnsurePaths() error {
	if c.Paths.State == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.State, 0700); err != nil {
		return fmt.Errorf("creating %s: %w", c.Paths.State, err)
	}
	return nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/bureau-foundation/buildagent/cmd/bureau-build-agent/cli"
	"github.com/bureau-foundation/buildagent/lib/capability"
	"github.com/bureau-foundation/buildagent/lib/clock"
	"github.com/bureau-foundation/buildagent/lib/config"
	"github.com/bureau-foundation/buildagent/lib/credential"
	"github.com/bureau-foundation/buildagent/lib/notify"
	"github.com/bureau-foundation/buildagent/lib/sessionstate"
	"github.com/bureau-foundation/buildagent/lib/version"
	"github.com/bureau-foundation/buildagent/listener"
	"github.com/bureau-foundation/buildagent/messaging"
)

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cli.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return cli.NewCommandLogger(level).With("agent_id", cfg.Agent.ID, "pool_id", cfg.Agent.PoolID), nil
}

// runAgent wires the listener to the server and runs it until ctx is
// cancelled or a fatal failure occurs.
func (a *app) runAgent(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	return a.runListener(ctx, cfg, logger, clock.Real())
}

func (a *app) runListener(ctx context.Context, cfg *config.Config, logger *slog.Logger, c clock.Clock) error {
	timings, err := cfg.Session.Timings()
	if err != nil {
		return err
	}

	identity := listener.Identity{
		AgentID:   cfg.Agent.ID,
		AgentName: cfg.Agent.Name,
		Version:   version.Short(),
		PoolID:    cfg.Agent.PoolID,
		ServerURL: cfg.Agent.ServerURL,
		Enabled:   cfg.Agent.Enabled,
	}
	if !identity.Enabled {
		return fmt.Errorf("agent %q: %w (agent.enabled is false)", identity.AgentName, listener.ErrAgentDisabled)
	}

	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	capabilities, err := capability.Discover(ctx, capability.Agent{Name: identity.AgentName, Version: identity.Version}, cfg.Paths.CapabilitiesFile)
	if err != nil {
		return fmt.Errorf("discovering capabilities: %w", err)
	}
	logger.Debug("capabilities discovered", "count", len(capabilities), "digest", capability.Digest(capabilities))

	connection := messaging.NewConnection(messaging.ClientConfig{HTTPClient: a.httpClient, Logger: logger})
	defer connection.Close()

	notifier := notify.NewTerminal(a.stdout, c)

	sessions, err := listener.NewSessionManager(listener.SessionConfig{
		Transport: connection,
		Credentials: credential.FileSource{
			TokenFile:    cfg.Credentials.TokenFile,
			IdentityFile: cfg.Credentials.IdentityFile,
		},
		Clock:              c,
		Notifier:           notifier,
		Logger:             logger,
		StatePath:          filepath.Join(cfg.Paths.State, sessionstate.FileName),
		RetryInterval:      timings.CreateRetryInterval,
		ConflictRetryLimit: timings.ConflictRetryLimit,
		TeardownTimeout:    timings.TeardownTimeout,
	})
	if err != nil {
		return err
	}

	poller, err := listener.NewMessagePoller(listener.PollerConfig{
		Transport:     connection,
		Sessions:      sessions,
		Clock:         c,
		Notifier:      notifier,
		Logger:        logger,
		RetryInterval: timings.PollRetryInterval,
	})
	if err != nil {
		return err
	}

	logger.Info("build agent starting",
		"agent", identity.AgentName,
		"version", identity.Version,
		"server_url", identity.ServerURL,
	)
	return listener.Run(ctx, listener.RunConfig{
		Identity:     identity,
		Capabilities: capabilities,
		Sessions:     sessions,
		Poller:       poller,
		Dispatcher:   &logDispatcher{logger: logger, notifier: notifier},
		Logger:       logger,
	})
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/buildagent/cmd/bureau-build-agent/cli"
	"github.com/bureau-foundation/buildagent/lib/capability"
	"github.com/bureau-foundation/buildagent/lib/config"
	"github.com/bureau-foundation/buildagent/lib/credential"
	"github.com/bureau-foundation/buildagent/lib/sealed"
	"github.com/bureau-foundation/buildagent/lib/secret"
	"github.com/bureau-foundation/buildagent/lib/version"
	"github.com/bureau-foundation/buildagent/messaging"
)

// longPollTimeout bounds a single HTTP exchange. It must exceed the
// server's message hold time.
const longPollTimeout = 2 * time.Minute

// app carries the process's standard streams so commands can be driven
// from tests.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// httpClient is used for all server traffic.
	httpClient *http.Client
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
		httpClient: &http.Client{Timeout: longPollTimeout},
	}
}

func (a *app) root() *cli.Command {
	return &cli.Command{
		Name:        "bureau-build-agent",
		Description: "Holds a session with the orchestration server and runs the build jobs it delivers.",
		Output:      a.stderr,
		Subcommands: []*cli.Command{
			a.runCommand(),
			a.checkCommand(),
			a.sealCommand(),
			a.versionCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Run the agent with an explicit config file",
				Command:     "bureau-build-agent run --config /etc/bureau/build-agent.yaml",
			},
			{
				Description: "Verify the server is reachable with the configured token",
				Command:     "BUREAU_AGENT_CONFIG=agent.toml bureau-build-agent check",
			},
		},
	}
}

// configFlags are shared by the commands that read the agent config.
type configFlags struct {
	path     string
	logLevel string
}

func (f *configFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.path, "config", "", "agent config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&f.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

// load reads, overrides, and validates the config.
func (f *configFlags) load() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.path != "" {
		cfg, err = config.LoadFile(f.path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (a *app) runCommand() *cli.Command {
	var flags configFlags
	return &cli.Command{
		Name:    "run",
		Summary: "Hold a session and dispatch delivered jobs",
		Description: `Creates an agent session on the orchestration server and long-polls it
for jobs until interrupted. Transient failures are retried; a session
that expires is recreated. On SIGINT or SIGTERM the session is deleted
before exit.`,
		Usage: "bureau-build-agent run [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return a.runAgent(ctx, cfg)
		},
	}
}

func (a *app) checkCommand() *cli.Command {
	var flags configFlags
	return &cli.Command{
		Name:        "check",
		Summary:     "Verify server connectivity and credentials",
		Description: "Loads the config and token, connects to the server once, and prints what the server reports.",
		Usage:       "bureau-build-agent check [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("check", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return a.check(ctx, cfg)
		},
	}
}

// check connects once and reports the result. A connection failure is
// printed and turned into exit code 1.
func (a *app) check(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	credentials, err := credential.FileSource{
		TokenFile:    cfg.Credentials.TokenFile,
		IdentityFile: cfg.Credentials.IdentityFile,
	}.Load()
	if err != nil {
		return err
	}

	connection := messaging.NewConnection(messaging.ClientConfig{HTTPClient: a.httpClient, Logger: logger})
	defer connection.Close()

	if err := connection.Connect(ctx, cfg.Agent.ServerURL, credentials); err != nil {
		fmt.Fprintf(a.stdout, "FAIL  %s: %v\n", cfg.Agent.ServerURL, err)
		return &cli.ExitError{Code: 1}
	}
	data, err := connection.ConnectionData(ctx)
	if err != nil {
		fmt.Fprintf(a.stdout, "FAIL  %s: %v\n", cfg.Agent.ServerURL, err)
		return &cli.ExitError{Code: 1}
	}

	capabilities, err := capability.Discover(ctx, capability.Agent{Name: cfg.Agent.Name, Version: version.Short()}, cfg.Paths.CapabilitiesFile)
	if err != nil {
		return fmt.Errorf("discovering capabilities: %w", err)
	}

	fmt.Fprintf(a.stdout, "OK    %s\n", cfg.Agent.ServerURL)
	fmt.Fprintf(a.stdout, "      server version: %s\n", data.ServerVersion)
	fmt.Fprintf(a.stdout, "      instance:       %s\n", data.InstanceID)
	fmt.Fprintf(a.stdout, "      agent:          %s (id %d, pool %d)\n", cfg.Agent.Name, cfg.Agent.ID, cfg.Agent.PoolID)
	fmt.Fprintf(a.stdout, "      capabilities:   %d (digest %s)\n", len(capabilities), capability.Digest(capabilities)[:16])
	if !cfg.Agent.Enabled {
		fmt.Fprintf(a.stdout, "      agent.enabled is false; run will refuse to start\n")
	}
	return nil
}

func (a *app) sealCommand() *cli.Command {
	var recipients []string
	var generate string
	return &cli.Command{
		Name:    "seal",
		Summary: "Encrypt a token for credentials.token_file",
		Description: `Reads a bearer token from stdin and writes it to stdout as base64 age
ciphertext for the given recipients. Point credentials.token_file at the
result and credentials.identity_file at the matching private key.

With --generate-identity, writes a new private key to the given path
(mode 0600) and prints its public key instead.`,
		Usage: "bureau-build-agent seal --recipient <age1...> < token",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("seal", pflag.ContinueOnError)
			flagSet.StringArrayVarP(&recipients, "recipient", "r", nil, "age public key to encrypt to (repeatable)")
			flagSet.StringVar(&generate, "generate-identity", "", "write a new age private key to this path")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Create an identity and seal a token to it",
				Command:     "bureau-build-agent seal --generate-identity /etc/bureau/agent.key",
			},
			{
				Command: "bureau-build-agent seal -r age1... < token > /etc/bureau/token.age",
			},
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			if generate != "" {
				return a.generateIdentity(generate)
			}
			return a.seal(recipients)
		},
	}
}

func (a *app) generateIdentity(path string) error {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return err
	}
	defer keypair.Close()

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("creating identity file: %w", err)
	}
	if _, err := file.Write(keypair.PrivateKey.Bytes()); err != nil {
		file.Close()
		return fmt.Errorf("writing identity file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}

	fmt.Fprintln(a.stdout, keypair.PublicKey)
	return nil
}

func (a *app) seal(recipients []string) error {
	if len(recipients) == 0 {
		return errors.New("at least one --recipient is required")
	}
	raw, err := io.ReadAll(a.stdin)
	if err != nil {
		return fmt.Errorf("reading token: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return errors.New("no token on stdin")
	}
	token, err := secret.NewFromBytes(bytes.TrimSpace(raw))
	secret.Zero(raw)
	if err != nil {
		return fmt.Errorf("reading token: %w", err)
	}
	defer token.Close()

	ciphertext, err := sealed.Encrypt(token.Bytes(), recipients)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, ciphertext)
	return nil
}

func (a *app) versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(context.Context, []string) error {
			fmt.Fprintln(a.stdout, version.Full())
			return nil
		},
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_DispatchesSubcommand(t *testing.T) {
	var gotArgs []string
	var gotServer string
	root := &Command{
		Name:   "bureau-build-agent",
		Output: &bytes.Buffer{},
		Subcommands: []*Command{
			{
				Name: "check",
				Flags: func() *pflag.FlagSet {
					flagSet := pflag.NewFlagSet("check", pflag.ContinueOnError)
					flagSet.StringVar(&gotServer, "server", "", "server URL")
					return flagSet
				},
				Run: func(_ context.Context, args []string) error {
					gotArgs = args
					return nil
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"check", "--server", "https://ci.example", "extra"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotServer != "https://ci.example" {
		t.Errorf("--server = %q, want https://ci.example", gotServer)
	}
	if len(gotArgs) != 1 || gotArgs[0] != "extra" {
		t.Errorf("args = %v, want [extra]", gotArgs)
	}
}

func TestCommand_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "value")
	var got any
	root := &Command{
		Name:        "bureau-build-agent",
		Subcommands: []*Command{{Name: "run", Run: func(ctx context.Context, _ []string) error { got = ctx.Value(key{}); return nil }}},
	}
	if err := root.Execute(ctx, []string{"run"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != "value" {
		t.Errorf("context value = %v, want value", got)
	}
}

func TestCommand_ReturnsRunError(t *testing.T) {
	want := errors.New("boom")
	root := &Command{
		Name:        "bureau-build-agent",
		Subcommands: []*Command{{Name: "run", Run: func(context.Context, []string) error { return want }}},
	}
	if err := root.Execute(context.Background(), []string{"run"}); !errors.Is(err, want) {
		t.Errorf("Execute = %v, want %v", err, want)
	}
}

func TestCommand_UnknownCommand(t *testing.T) {
	root := &Command{
		Name: "bureau-build-agent",
		Subcommands: []*Command{
			{Name: "run", Run: func(context.Context, []string) error { return nil }},
			{Name: "version", Run: func(context.Context, []string) error { return nil }},
		},
	}

	err := root.Execute(context.Background(), []string{"rnu"})
	if err == nil {
		t.Fatal("Execute succeeded for an unknown command")
	}
	if !strings.Contains(err.Error(), `did you mean "run"`) {
		t.Errorf("error %q does not suggest run", err)
	}

	err = root.Execute(context.Background(), []string{"zzzzzzzz"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("Execute(zzzzzzzz) = %v, want an error without a suggestion", err)
	}
}

func TestCommand_UnknownFlag(t *testing.T) {
	command := &Command{
		Name: "run",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flagSet.String("config", "", "config file")
			return flagSet
		},
		Run: func(context.Context, []string) error {
			t.Error("Run called despite a bad flag")
			return nil
		},
	}

	err := command.Execute(context.Background(), []string{"--confg", "agent.yaml"})
	if err == nil {
		t.Fatal("Execute succeeded with an unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --config?") {
		t.Errorf("error %q does not suggest --config", err)
	}
	if !strings.Contains(err.Error(), "Run 'run --help' for usage.") {
		t.Errorf("error %q has no help hint", err)
	}
}

func TestCommand_HelpFlag(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {"-h"}, {"help"}, {"run", "--help"}} {
		var output bytes.Buffer
		root := &Command{
			Name:        "bureau-build-agent",
			Description: "Build agent.",
			Output:      &output,
			Subcommands: []*Command{{
				Name:    "run",
				Summary: "Run the agent",
				Flags: func() *pflag.FlagSet {
					return pflag.NewFlagSet("run", pflag.ContinueOnError)
				},
				Run: func(context.Context, []string) error {
					t.Errorf("Run called for %v", args)
					return nil
				},
			}},
		}
		if err := root.Execute(context.Background(), args); err != nil {
			t.Errorf("Execute(%v): %v", args, err)
		}
		if !strings.Contains(output.String(), "Usage:") {
			t.Errorf("Execute(%v) printed no help: %q", args, output.String())
		}
	}
}

func TestCommand_SubcommandRequired(t *testing.T) {
	var output bytes.Buffer
	root := &Command{
		Name:        "bureau-build-agent",
		Output:      &output,
		Subcommands: []*Command{{Name: "run", Summary: "Run the agent"}},
	}
	if err := root.Execute(context.Background(), nil); err == nil {
		t.Error("Execute with no args succeeded")
	}
	if !strings.Contains(output.String(), "Commands:") {
		t.Errorf("help not printed: %q", output.String())
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	command := &Command{
		Name:        "bureau-build-agent",
		Description: "Listens for build jobs from the orchestration server.",
		Subcommands: []*Command{
			{Name: "run", Summary: "Hold a session and dispatch jobs"},
			{Name: "check", Summary: "Verify server connectivity"},
		},
		Examples: []Example{
			{Description: "Run with an explicit config", Command: "bureau-build-agent run --config /etc/bureau/agent.yaml"},
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"Listens for build jobs",
		"Usage:",
		"bureau-build-agent <command> [flags]",
		"Commands:",
		"Hold a session and dispatch jobs",
		"check",
		"Examples:",
		"# Run with an explicit config",
		"Run 'bureau-build-agent <command> --help'",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_PrintHelp_WithFlags(t *testing.T) {
	command := &Command{
		Name:  "run",
		Usage: "bureau-build-agent run [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flagSet.String("config", "", "config file path")
			flagSet.String("log-level", "", "override log.level")
			return flagSet
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()
	for _, want := range []string{"bureau-build-agent run [flags]", "Flags:", "--config", "--log-level"} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_FullName(t *testing.T) {
	root := &Command{Name: "bureau-build-agent"}
	run := &Command{Name: "run", parent: root}
	if got := run.fullName(); got != "bureau-build-agent run" {
		t.Errorf("fullName() = %q", got)
	}
}

func TestExitError(t *testing.T) {
	err := &ExitError{Code: 2}
	if err.ExitCode() != 2 || err.Error() != "exit code 2" {
		t.Errorf("ExitError = (%d, %q)", err.ExitCode(), err.Error())
	}
}

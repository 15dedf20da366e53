// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "run", 3},
		{"run", "", 3},
		{"run", "run", 0},
		{"rnu", "run", 2},
		{"chek", "check", 1},
		{"version", "versoin", 2},
		{"kitten", "sitting", 3},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{{Name: "run"}, {Name: "check"}, {Name: "version"}, {Name: "seal"}}
	tests := []struct {
		input string
		want  string
	}{
		{"chek", "check"},
		{"verison", "version"},
		{"sael", "seal"},
		{"completely-different", ""},
	}
	for _, test := range tests {
		if got := suggestCommand(test.input, commands); got != test.want {
			t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestSuggestFlag(t *testing.T) {
	makeFlagSet := func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flagSet.String("config", "", "")
		flagSet.String("log-level", "", "")
		flagSet.StringArray("recipient", nil, "")
		flagSet.BoolP("verbose", "v", false, "")
		return flagSet
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "double dash typo", args: []string{"--confg"}, want: "--config"},
		{name: "single dash typo", args: []string{"-confg"}, want: "--config"},
		{name: "with equals", args: []string{"--log-levle=debug"}, want: "--log-level"},
		{name: "defined flags skipped", args: []string{"--config", "x", "--recipeint"}, want: "--recipient"},
		{name: "shorthand defined", args: []string{"-v", "--confi"}, want: "--config"},
		{name: "nothing close", args: []string{"--zzzzzzzzz"}, want: ""},
		{name: "positional only", args: []string{"agent.yaml"}, want: ""},
		{name: "after terminator", args: []string{"--", "--confg"}, want: ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := suggestFlag(test.args, makeFlagSet()); got != test.want {
				t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
			}
		})
	}
}

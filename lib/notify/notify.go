// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/bureau-foundation/buildagent/lib/clock"
)

// Sink receives user-visible notices. Each call is one line.
type Sink interface {
	Info(message string)
	Warn(message string)
	Error(message string)
}

// Level identifies the severity a notice was emitted at.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// TimestampFormat is the layout of the UTC timestamp prefixing each
// terminal line.
const TimestampFormat = "2006-01-02 15:04:05Z"

// Terminal writes notices as "<timestamp>: <message>" lines. Warnings
// and errors are colored when the destination is a terminal.
type Terminal struct {
	clock clock.Clock

	mu     sync.Mutex
	writer io.Writer

	timestampStyle lipgloss.Style
	warnStyle      lipgloss.Style
	errorStyle     lipgloss.Style
}

// NewTerminal creates a Terminal writing to writer. Color is enabled
// only when writer is an *os.File (or anything with an Fd method)
// attached to a terminal.
func NewTerminal(writer io.Writer, c clock.Clock) *Terminal {
	profile := termenv.Ascii
	if file, ok := writer.(interface{ Fd() uintptr }); ok && term.IsTerminal(int(file.Fd())) {
		profile = termenv.ANSI256
	}
	renderer := lipgloss.NewRenderer(writer, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)

	return &Terminal{
		clock:          c,
		writer:         writer,
		timestampStyle: renderer.NewStyle().Foreground(lipgloss.Color("245")),
		warnStyle:      renderer.NewStyle().Foreground(lipgloss.Color("214")),
		errorStyle:     renderer.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

func (t *Terminal) Info(message string) { t.write(message, lipgloss.NewStyle()) }

func (t *Terminal) Warn(message string) { t.write(message, t.warnStyle) }

func (t *Terminal) Error(message string) { t.write(message, t.errorStyle) }

func (t *Terminal) write(message string, style lipgloss.Style) {
	timestamp := t.clock.Now().UTC().Format(TimestampFormat)

	t.mu.Lock()
	defer t.mu.Unlock()
	// Notices are best-effort: a closed console must not stop the agent.
	fmt.Fprintf(t.writer, "%s: %s\n", t.timestampStyle.Render(timestamp), style.Render(message))
}

// Notice is one recorded notice.
type Notice struct {
	Level   Level
	Message string
}

// Recorder is a Sink that keeps every notice in memory. Safe for
// concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Info(message string)  { r.record(LevelInfo, message) }
func (r *Recorder) Warn(message string)  { r.record(LevelWarn, message) }
func (r *Recorder) Error(message string) { r.record(LevelError, message) }

func (r *Recorder) record(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Level: level, Message: message})
}

// Notices returns a copy of the recorded notices in emission order.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Count returns how many notices were recorded at level.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, notice := range r.notices {
		if notice.Level == level {
			count++
		}
	}
	return count
}

// Discard is a Sink that drops every notice.
type Discard struct{}

func (Discard) Info(string)  {}
func (Discard) Warn(string)  {}
func (Discard) Error(string) {}

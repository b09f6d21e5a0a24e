// Package xterm holds the small utilities that do not belong to any single
// execution-core component: line splitting that treats CR, LF, and CRLF
// uniformly, keyed-default application for option structs, and terminal
// capability detection for the progress reporter's output formatter.
package xterm

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// SplitLines splits s on any of "\n", "\r\n", or a bare "\r", mirroring how
// the subprocess executor must treat child output: a lone "\r" is a line
// ending just as much as "\n" is, and a "\r\n" pair must not produce an
// extra empty line.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			lines = append(lines, s[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, s[start:i])
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// HasLineEnding reports whether s ends with "\n" or "\r"; an empty string
// counts as ending a line.
func HasLineEnding(s string) bool {
	if s == "" {
		return true
	}
	last := s[len(s)-1]
	return last == '\n' || last == '\r'
}

// Formatter renders progress and error text for a specific terminal
// capability. It replaces the module-level color singleton the original
// implementation used with an explicit object chosen once at startup.
type Formatter interface {
	Bold(s string) string
	Red(s string) string
	Yellow(s string) string
	Dim(s string) string
	// SupportsCarriageReturnOverwrite reports whether the progress
	// reporter may overwrite the current line with '\r' instead of
	// emitting "PROGRESS: ...\n" lines.
	SupportsCarriageReturnOverwrite() bool
}

type ansiFormatter struct{ cr bool }

func (ansiFormatter) Bold(s string) string   { return "\x1b[1m" + s + "\x1b[0m" }
func (ansiFormatter) Red(s string) string    { return "\x1b[31m" + s + "\x1b[0m" }
func (ansiFormatter) Yellow(s string) string { return "\x1b[33m" + s + "\x1b[0m" }
func (ansiFormatter) Dim(s string) string    { return "\x1b[2m" + s + "\x1b[0m" }
func (f ansiFormatter) SupportsCarriageReturnOverwrite() bool { return f.cr }

type plainFormatter struct{}

func (plainFormatter) Bold(s string) string                      { return s }
func (plainFormatter) Red(s string) string                       { return s }
func (plainFormatter) Yellow(s string) string                    { return s }
func (plainFormatter) Dim(s string) string                       { return s }
func (plainFormatter) SupportsCarriageReturnOverwrite() bool      { return false }

// DetectFormatter chooses a Formatter the way the original terminal module
// does: ANSI is assumed unless stderr is not a TTY, with a few terminal
// programs on Windows needing the CONEMUANSI / WT_SESSION escape hatches
// because they support ANSI color codes without satisfying the generic
// Windows console checks.
func DetectFormatter() Formatter {
	isTTY := term.IsTerminal(int(os.Stderr.Fd()))
	ansi := isTTY || windowsANSICapableEnv()
	if !ansi {
		return plainFormatter{}
	}
	return ansiFormatter{cr: isTTY}
}

// windowsANSICapableEnv reports whether well-known environment variables
// indicate a terminal emulator that supports ANSI escapes even when the
// standard console-mode probe would say otherwise: Alacritty, Windows
// Terminal, ConEmu, and terminals that set TERM_PROGRAM (e.g. VS Code's
// integrated terminal).
func windowsANSICapableEnv() bool {
	for _, k := range []string{"ALACRITTY_LOG", "WT_SESSION", "CONEMUANSI", "TERM_PROGRAM"} {
		if v := os.Getenv(k); v != "" && !strings.EqualFold(v, "0") {
			return true
		}
	}
	return false
}

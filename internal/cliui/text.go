// Package cliui provides semantic text formatting for command output.
// Formatters colorize when the terminal supports it and fall back to
// plain text decorations when NO_COLOR is set or colors are unavailable.
package cliui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter applies one semantic style to text.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

func (f Formatter) Sprint(a ...any) string {
	text := fmt.Sprint(a...)
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

func (f Formatter) Sprintf(format string, a ...any) string {
	text := fmt.Sprintf(format, a...)
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// EnsureNewline appends a trailing newline when the string lacks one.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

func noColor() bool {
	// https://no-color.org/ plus fatih/color's own terminal detection.
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

var (
	// Success marks completed operations. Green, no fallback decoration.
	Success = Formatter{color.New(color.FgGreen), "", ""}

	// Error marks failures. Red, no fallback decoration.
	Error = Formatter{color.New(color.FgRed), "", ""}

	// Warning marks irreversible or destructive steps. Yellow.
	Warning = Formatter{color.New(color.FgYellow), "", ""}

	// Info marks hints and follow-up suggestions. Cyan.
	Info = Formatter{color.New(color.FgCyan), "", ""}

	// Code formats runnable commands. Yellow, `backticks` without color.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	// Path formats file locations. Yellow, undecorated without color.
	Path = Formatter{color.New(color.FgYellow), "", ""}

	// Highlight emphasizes user-supplied values such as key IDs.
	// Cyan, 'single quotes' without color.
	Highlight = Formatter{color.New(color.FgCyan), "'", "'"}

	// Muted de-emphasizes secondary detail. Gray, (parentheses) without.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}
)

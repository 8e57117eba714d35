// Package printer formats CLI output: colored status lines, key/value
// listings and rich errors with suggestions.
package printer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dyluth/switchboard/pkg/ami"
	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	// Color definitions
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects normal and error output. Nil leaves a stream unchanged.
func SetOutput(out, errOut io.Writer) {
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
}

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Fprintf(stdout, "✓ %s", msg)
	} else {
		green.Fprint(stdout, msg)
	}
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Fprintf(stdout, format, a...)
}

// Warning prints a warning message in yellow with a warning emoji prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Fprintf(stderr, "⚠️  %s", msg)
	} else {
		yellow.Fprint(stderr, msg)
	}
}

// Fields prints key/value pairs aligned on the longest key.
func Fields(keys []string, value func(key string) string) {
	width := 0
	for _, k := range keys {
		if len(k) > width {
			width = len(k)
		}
	}
	for _, k := range keys {
		bold.Fprintf(stdout, "%-*s", width+1, k+":")
		fmt.Fprintf(stdout, " %s\n", value(k))
	}
}

// Error creates a formatted error message with title, explanation, and suggestions
// Prints the formatted error to stderr with colors and returns a simple error for Cobra
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext creates a formatted error with context details, listed
// in key order.
// Prints the formatted error to stderr with colors and returns a simple error for Cobra
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(stderr, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(stderr, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintf(stderr, "\n")
		for _, key := range keys {
			fmt.Fprintf(stderr, "  %s: %s\n", key, context[key])
		}
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Return simple error for Cobra (won't be printed due to SilenceErrors)
	return fmt.Errorf("%s", title)
}

// ManagerError explains a failed manager operation, with suggestions that
// depend on the kind of failure.
func ManagerError(operation, addr string, err error) error {
	context := map[string]string{
		"Manager": addr,
		"Error":   err.Error(),
	}

	var failure *ami.ActionFailureError
	var notFound *ami.NotFoundError
	switch {
	case errors.As(err, &notFound):
		return ErrorWithContext(
			fmt.Sprintf("%s: %s not found", operation, notFound.Kind),
			fmt.Sprintf("The manager has no %s named '%s'.", notFound.Kind, notFound.Name),
			context,
			[]string{"List what exists with: switchboard channels / switchboard conferences"},
		)
	case errors.As(err, &failure):
		return ErrorWithContext(
			fmt.Sprintf("%s: action rejected", operation),
			"The manager replied with an error.",
			context,
			[]string{"Check the manager user's permissions in manager.conf"},
		)
	case errors.Is(err, ami.ErrClosed):
		return ErrorWithContext(
			fmt.Sprintf("%s: connection closed", operation),
			"The manager connection closed before the operation finished.",
			context,
			nil,
		)
	default:
		return ErrorWithContext(
			fmt.Sprintf("%s failed", operation),
			"",
			context,
			[]string{
				"Check the manager is reachable: switchboard ping",
				"Check host, port and credentials in switchboard.yml",
			},
		)
	}
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Fprintf(stdout, "→ %s", fmt.Sprintf(format, a...))
}

// Println prints a plain message (for output that doesn't need coloring)
func Println(a ...any) {
	fmt.Fprintln(stdout, a...)
}

// Printf prints a plain formatted message (for output that doesn't need coloring)
func Printf(format string, a ...any) {
	fmt.Fprintf(stdout, format, a...)
}

// Package printer writes user-facing CLI output: coloured status lines and
// structured error reports with suggestions.
package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

func init() {
	// Colour even without a TTY; NO_COLOR turns it off.
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Printer writes messages to an output and an error stream.
type Printer struct {
	out io.Writer
	err io.Writer
}

// New returns a Printer writing to out and errOut.
func New(out, errOut io.Writer) *Printer {
	return &Printer{out: out, err: errOut}
}

var std = New(os.Stdout, os.Stderr)

// SetOutput redirects the package-level printer. Commands call this with
// cobra's streams so tests can capture output.
func SetOutput(out, errOut io.Writer) {
	std = New(out, errOut)
}

// Success prints a green message with a checkmark prefix.
func (p *Printer) Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(p.out, msg)
}

// Info prints a message in the default colour.
func (p *Printer) Info(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

// Warning prints a yellow message with a warning prefix.
func (p *Printer) Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprint(p.out, msg)
}

// Step prints a cyan progress line for multi-step operations.
func (p *Printer) Step(format string, a ...any) {
	cyan.Fprintf(p.out, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints title, explanation and suggestions to the error stream and
// returns an error carrying only the title, so cobra does not repeat the report.
func (p *Printer) Error(title, explanation string, suggestions []string) error {
	return p.ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value details, printed in key order.
func (p *Printer) ErrorWithContext(title, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(p.err, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(p.err, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintln(p.err)
		for _, k := range keys {
			fmt.Fprintf(p.err, "  %s: %s\n", k, context[k])
		}
	}

	p.suggest(suggestions)

	return fmt.Errorf("%s", title)
}

func (p *Printer) suggest(suggestions []string) {
	switch len(suggestions) {
	case 0:
		return
	case 1:
		fmt.Fprintf(p.err, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(p.err, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(p.err, "  %d. %s\n", i+1, s)
		}
	}
}

// Success prints to the package-level printer.
func Success(format string, a ...any) { std.Success(format, a...) }

// Info prints to the package-level printer.
func Info(format string, a ...any) { std.Info(format, a...) }

// Warning prints to the package-level printer.
func Warning(format string, a ...any) { std.Warning(format, a...) }

// Step prints to the package-level printer.
func Step(format string, a ...any) { std.Step(format, a...) }

// Error reports through the package-level printer.
func Error(title, explanation string, suggestions []string) error {
	return std.Error(title, explanation, suggestions)
}

// ErrorWithContext reports through the package-level printer.
func ErrorWithContext(title, explanation string, context map[string]string, suggestions []string) error {
	return std.ErrorWithContext(title, explanation, context, suggestions)
}

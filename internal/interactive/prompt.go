// Package interactive provides interactive prompts for user confirmation.
package interactive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Response represents the user's response to a prompt.
type Response int

const (
	ResponseNo  Response = iota // Decline (the default)
	ResponseYes                 // Accept
	ResponseEOF                 // Input closed before an answer
)

// Prompter asks yes/no questions. Without a terminal on stdin every
// question is answered no without being shown.
type Prompter struct {
	in      io.Reader
	out     io.Writer
	scanner *bufio.Scanner
	isTTY   func() bool
}

// NewPrompter creates a prompter with stdin/stdout.
func NewPrompter() *Prompter {
	p := NewPrompterWithIO(os.Stdin, os.Stdout)
	p.isTTY = IsTerminal
	return p
}

// NewPrompterWithIO creates a prompter with custom input/output (for testing).
// It always treats in as interactive.
func NewPrompterWithIO(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:      in,
		out:     out,
		scanner: bufio.NewScanner(in),
		isTTY:   func() bool { return true },
	}
}

// IsTerminal checks if stdin is a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Interactive reports whether questions will be shown.
func (p *Prompter) Interactive() bool {
	return p.isTTY()
}

// prompt displays a question and reads the response.
func (p *Prompter) prompt(format string, args ...interface{}) Response {
	_, _ = fmt.Fprintf(p.out, format, args...)
	_, _ = fmt.Fprint(p.out, " (y/N) ")

	if !p.scanner.Scan() {
		_, _ = fmt.Fprintln(p.out)
		return ResponseEOF
	}

	switch strings.ToLower(strings.TrimSpace(p.scanner.Text())) {
	case "y", "yes":
		return ResponseYes
	default:
		return ResponseNo
	}
}

// Confirm asks a yes/no question. Anything but y or yes is no.
func (p *Prompter) Confirm(format string, args ...interface{}) bool {
	if !p.Interactive() {
		return false
	}
	return p.prompt(format, args...) == ResponseYes
}

// ConfirmRestore asks whether to roll the installation back after a failed
// update.
func (p *Prompter) ConfirmRestore() bool {
	if !p.Interactive() {
		return false
	}
	_, _ = fmt.Fprintln(p.out, "\nThe update did not complete. A backup of the previous installation is available.")
	return p.prompt("Restore from backup?") == ResponseYes
}

// WaitForEnter pauses until the user presses Enter. It returns at once
// without a terminal.
func (p *Prompter) WaitForEnter() {
	if !p.Interactive() {
		return
	}
	_, _ = fmt.Fprint(p.out, "Press Enter to exit...")
	p.scanner.Scan()
}

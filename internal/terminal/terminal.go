package terminal

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/term"
)

// IsTerminal reports whether stdout is attached to a terminal. When it is
// not (output piped to a file, CI), the client falls back to plain mode.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Width returns the terminal width, or a sane default when it cannot be
// determined.
func Width() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// ReadUserInput reads a line of input from the user
func ReadUserInput(reader *bufio.Reader) (string, error) {
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	// Trim whitespace and newline
	return strings.TrimSpace(input), nil
}

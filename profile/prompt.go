package profile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// PromptFunc blocks until it can return a password, or fails because no
// interactive channel is available. Implementations must not echo.
type PromptFunc func() (string, error)

// ReadPassword prompts for a password on the controlling terminal
// without echoing the input. It fails rather than hangs when stdin is
// not a terminal, e.g. under cron or CI.
func ReadPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal, can't prompt for a password")
	}
	fmt.Fprint(os.Stderr, "\nPassword: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

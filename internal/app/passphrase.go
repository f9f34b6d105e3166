package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrNoTerminal is returned when a passphrase must be prompted for but stdin
// is not a terminal.
var ErrNoTerminal = errors.New("passphrase required (-p): stdin is not a terminal")

// ReadPassphrase returns flag when it is set and otherwise prompts on the
// terminal without echoing input.
func ReadPassphrase(flag, prompt string) (string, error) {
	return readPassphrase(flag, prompt, os.Stdin, os.Stderr)
}

func readPassphrase(flag, prompt string, in *os.File, out io.Writer) (string, error) {
	if flag != "" {
		return flag, nil
	}
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNoTerminal
	}

	fmt.Fprint(out, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(out) // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(b), nil
}

package main

import (
	"errors"
	"io"
)

// Handle-able error codes that arise from line editors
var (
	ErrInterrupt = errors.New("Interrupt")
	ErrEnd       = io.EOF
)

// LineEditor provides decent line editing abilities: left/right arrow
// cursor movement, hidden password entry etc.
type LineEditor interface {
	// Line returns a line of text as read from the user
	Line(prompt string) (string, error)
	// LineHidden returns a line of text as read from the user, but does not
	// show what's typed to the user.
	LineHidden(prompt string) (string, error)

	// Close the line editor, restoring any terminal magic to its proper place
	Close() error
}

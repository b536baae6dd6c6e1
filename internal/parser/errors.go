package parser

import "fmt"

// ParseError means a command's output did not match any known format. The
// section's records are absent; the device and its other sections are
// unaffected.
type ParseError struct {
	Command string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse output of %q: %s", e.Command, e.Reason)
}

func newParseError(command, reason string) *ParseError {
	return &ParseError{Command: command, Reason: reason}
}

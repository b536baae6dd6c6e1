package session

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// AuthError means the credentials were rejected. Fatal for the device and
// never retried: credentials do not become valid by retrying.
type AuthError struct {
	Target string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected by %s: %v", e.Target, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ConnectError means the session could not be established for transient
// network reasons, after exhausting the configured retries.
type ConnectError struct {
	Target   string
	Attempts int
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s after %d attempt(s): %v", e.Target, e.Attempts, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// TimeoutError means an operation on an established session exceeded its
// deadline.
type TimeoutError struct {
	Target string
	Op     string
	Err    error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout on %s during %q: %v", e.Target, e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// classifyDialError maps an ssh dial failure onto the error taxonomy. The
// crypto/ssh package reports rejected credentials inside the handshake
// error text; everything else is treated as transient.
func classifyDialError(target string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "Permission denied") {
		return &AuthError{Target: target, Err: err}
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &TimeoutError{Target: target, Op: "dial", Err: err}
	}
	return &ConnectError{Target: target, Attempts: 1, Err: err}
}

// retryable reports whether a connect attempt with this error is worth
// repeating.
func retryable(err error) bool {
	var authErr *AuthError
	return !errors.As(err, &authErr)
}

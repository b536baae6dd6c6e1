package session

import (
	"errors"
	"fmt"
	"testing"
)

type fakeNetError struct{ timeout bool }

func (e *fakeNetError) Error() string   { return "dial tcp: i/o timeout" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

func TestClassifyDialError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "rejected credentials",
			err:  errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password]"),
			want: "auth",
		},
		{
			name: "permission denied",
			err:  errors.New("ssh: Permission denied (publickey,password)"),
			want: "auth",
		},
		{
			name: "network timeout",
			err:  fmt.Errorf("dial failed: %w", &fakeNetError{timeout: true}),
			want: "timeout",
		},
		{
			name: "connection refused",
			err:  errors.New("dial tcp 10.0.0.1:21112: connect: connection refused"),
			want: "connect",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyDialError("10.0.0.1:21112", tt.err)

			var authErr *AuthError
			var toErr *TimeoutError
			var connErr *ConnectError
			switch tt.want {
			case "auth":
				if !errors.As(got, &authErr) {
					t.Errorf("got %T, want *AuthError", got)
				}
			case "timeout":
				if !errors.As(got, &toErr) {
					t.Errorf("got %T, want *TimeoutError", got)
				}
			case "connect":
				if !errors.As(got, &connErr) {
					t.Errorf("got %T, want *ConnectError", got)
				}
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	auth := &AuthError{Target: "t", Err: errors.New("denied")}
	if retryable(auth) {
		t.Error("auth errors must not be retried")
	}
	if retryable(fmt.Errorf("wrapped: %w", auth)) {
		t.Error("wrapped auth errors must not be retried")
	}
	if !retryable(&ConnectError{Target: "t", Err: errors.New("refused")}) {
		t.Error("connect errors must be retried")
	}
	if !retryable(&TimeoutError{Target: "t", Op: "dial"}) {
		t.Error("timeouts must be retried")
	}
}

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "echo on the first line",
			raw:  "show version | no-more\r\nModel: mx960\r\nJunos: 21.4R3\r\nuser@P-D1-JKT-01> ",
			want: "Model: mx960\nJunos: 21.4R3",
		},
		{
			name: "blank line before the echo",
			raw:  "\r\nshow version | no-more\r\nModel: mx960\r\nuser@P-D1-JKT-01> ",
			want: "Model: mx960",
		},
		{
			name: "command text later in the body is kept",
			raw:  "show version | no-more\r\nline one\r\npipeline: show version | no-more was issued\r\nuser@host> ",
			want: "line one\npipeline: show version | no-more was issued",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanOutput(tt.raw, "show version | no-more"); got != tt.want {
				t.Errorf("cleanOutput() = %q, want %q", got, tt.want)
			}
		})
	}
}

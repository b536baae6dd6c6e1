// Package session opens one authenticated remote shell per device: a
// primary TACACS+ SSH login, then an optional nested hop from the TACACS
// endpoint onto the target router. Connect timeouts and retry-with-backoff
// apply to transient failures only; rejected credentials fail immediately.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	expect "github.com/google/goexpect"
	"golang.org/x/crypto/ssh"

	"github.com/fpcollect/fpcollect/internal/auth"
	"github.com/fpcollect/fpcollect/internal/config"
)

// promptRE matches a Junos operational or shell prompt at end of output.
var promptRE = regexp.MustCompile(`(?m)[\w.\-@:~\[\]()]+[>#%$]\s*$`)

// passwordRE matches the nested hop's password prompt.
var passwordRE = regexp.MustCompile(`(?i)password:\s*$`)

// confirmRE matches the host-key confirmation question on first hop.
var confirmRE = regexp.MustCompile(`(?i)are you sure you want to continue connecting`)

// deniedRE matches the hop's credential rejection.
var deniedRE = regexp.MustCompile(`(?i)permission denied|authentication failed`)

type dialFunc func(network, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error)

// Manager opens device sessions using a shared read-only access descriptor.
type Manager struct {
	access *auth.Access
	cfg    config.SSHConfig
	logger *slog.Logger

	dial dialFunc // injectable for tests
}

// NewManager creates a session manager.
func NewManager(access *auth.Access, cfg config.SSHConfig, logger *slog.Logger) *Manager {
	return &Manager{
		access: access,
		cfg:    cfg,
		logger: logger.With("component", "session"),
		dial:   ssh.Dial,
	}
}

// Session is an open interactive shell on one device. Close must be called
// on every exit path; Open's callers defer it immediately.
type Session struct {
	node   string
	client *ssh.Client
	exp    *expect.GExpect
	cfg    config.SSHConfig
	logger *slog.Logger

	keepaliveStop chan struct{}
}

// Open establishes a session to node. When a router hop is configured the
// SSH dial targets the TACACS endpoint and a nested `ssh user@node` is
// issued on the shell; otherwise the node is dialed directly with the
// TACACS credentials. Transient dial failures are retried with a fixed
// backoff across all configured TACACS servers; AuthError is terminal.
func (m *Manager) Open(ctx context.Context, node string) (*Session, error) {
	targets := m.targets(node)

	var lastErr error
	attempts := 0
	for try := 0; try <= m.cfg.Retries; try++ {
		if try > 0 {
			select {
			case <-ctx.Done():
				return nil, &ConnectError{Target: node, Attempts: attempts, Err: ctx.Err()}
			case <-time.After(m.cfg.GetRetryDelay()):
			}
		}
		for _, target := range targets {
			attempts++
			sess, err := m.open(ctx, node, target)
			if err == nil {
				return sess, nil
			}
			if !retryable(err) {
				return nil, err
			}
			m.logger.Warn("connect attempt failed",
				"node", node,
				"target", target,
				"attempt", attempts,
				"error", err,
			)
			lastErr = err
		}
	}
	return nil, &ConnectError{Target: node, Attempts: attempts, Err: lastErr}
}

// targets returns the dial targets in order of preference.
func (m *Manager) targets(node string) []string {
	if m.access.HopConfigured() {
		addrs := make([]string, 0, len(m.access.TacacsServers))
		for _, s := range m.access.TacacsServers {
			addrs = append(addrs, fmt.Sprintf("%s:%d", s, m.cfg.Port))
		}
		return addrs
	}
	return []string{fmt.Sprintf("%s:%d", node, m.cfg.Port)}
}

func (m *Manager) open(ctx context.Context, node, target string) (*Session, error) {
	clientCfg := &ssh.ClientConfig{
		User:            m.access.TacacsUser,
		Auth:            []ssh.AuthMethod{ssh.Password(m.access.TacacsPass)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // management network, keys churn on RE swaps
		Timeout:         m.cfg.GetConnectTimeout(),
	}

	client, err := m.dial("tcp", target, clientCfg)
	if err != nil {
		return nil, classifyDialError(target, err)
	}

	exp, _, err := expect.SpawnSSH(client, m.cfg.GetCommandTimeout(),
		expect.Verbose(false),
		expect.CheckDuration(500*time.Millisecond),
	)
	if err != nil {
		client.Close()
		return nil, &ConnectError{Target: target, Attempts: 1, Err: fmt.Errorf("failed to spawn shell: %w", err)}
	}

	sess := &Session{
		node:   node,
		client: client,
		exp:    exp,
		cfg:    m.cfg,
		logger: m.logger.With("node", node),
	}

	if _, _, err := exp.Expect(promptRE, m.cfg.GetConnectTimeout()); err != nil {
		sess.Close()
		return nil, &TimeoutError{Target: target, Op: "initial prompt", Err: err}
	}

	if m.access.HopConfigured() {
		if err := sess.hop(node, m.access.RouterUser, m.access.RouterPass); err != nil {
			sess.Close()
			return nil, err
		}
	}

	// Paging would truncate long command output at a --More-- prompt.
	if _, err := sess.run("set cli screen-length 0", m.cfg.GetHopTimeout()); err != nil {
		m.logger.Warn("failed to disable paging", "node", node, "error", err)
	}

	sess.startKeepalive()

	m.logger.Info("session established", "node", node, "target", target)
	return sess, nil
}

// hop performs the nested SSH login from the TACACS endpoint to the node,
// feeding the host-key confirmation and password prompts as they appear.
func (s *Session) hop(node, user, pass string) error {
	cmd := fmt.Sprintf("ssh -o StrictHostKeyChecking=no -o UserKnownHostsFile=/dev/null %s@%s", user, node)
	if err := s.exp.Send(cmd + "\n"); err != nil {
		return &ConnectError{Target: node, Attempts: 1, Err: fmt.Errorf("failed to start hop: %w", err)}
	}

	combined := regexp.MustCompile(confirmRE.String() + "|" + passwordRE.String() + "|" + deniedRE.String() + "|" + promptRE.String())
	deadline := time.Now().Add(s.cfg.GetHopTimeout())

	for time.Now().Before(deadline) {
		out, _, err := s.exp.Expect(combined, time.Until(deadline))
		if err != nil {
			return &TimeoutError{Target: node, Op: "hop", Err: err}
		}
		switch {
		case deniedRE.MatchString(out):
			return &AuthError{Target: node, Err: fmt.Errorf("router hop rejected credentials")}
		case confirmRE.MatchString(out):
			if err := s.exp.Send("yes\n"); err != nil {
				return &ConnectError{Target: node, Attempts: 1, Err: err}
			}
		case passwordRE.MatchString(out):
			if err := s.exp.Send(pass + "\n"); err != nil {
				return &ConnectError{Target: node, Attempts: 1, Err: err}
			}
			// After the password either a prompt or a rejection follows.
			out2, _, err := s.exp.Expect(regexp.MustCompile(deniedRE.String()+"|"+promptRE.String()), time.Until(deadline))
			if err != nil {
				return &TimeoutError{Target: node, Op: "hop login", Err: err}
			}
			if deniedRE.MatchString(out2) {
				return &AuthError{Target: node, Err: fmt.Errorf("router hop rejected credentials")}
			}
			return nil
		default:
			// Already at the device prompt (key-based or cached login).
			return nil
		}
	}
	return &TimeoutError{Target: node, Op: "hop", Err: fmt.Errorf("hop did not complete within %s", s.cfg.GetHopTimeout())}
}

// Run executes one command and returns its cleaned output.
func (s *Session) Run(ctx context.Context, cmd string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if timeout <= 0 {
		timeout = s.cfg.GetCommandTimeout()
	}
	return s.run(cmd, timeout)
}

func (s *Session) run(cmd string, timeout time.Duration) (string, error) {
	if err := s.exp.Send(cmd + "\n"); err != nil {
		return "", &ConnectError{Target: s.node, Attempts: 1, Err: fmt.Errorf("failed to send command: %w", err)}
	}
	out, _, err := s.exp.Expect(promptRE, timeout)
	if err != nil {
		return out, &TimeoutError{Target: s.node, Op: cmd, Err: err}
	}
	return cleanOutput(out, cmd), nil
}

// cleanOutput removes the command echo and the trailing prompt line. Some
// devices emit a blank line before the echo, so the echo is looked for in
// the first few lines, not just line 0.
func cleanOutput(output, cmd string) string {
	lines := strings.Split(output, "\n")
	var cleaned []string
	echoStripped := false
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if !echoStripped && i < 3 && strings.Contains(line, cmd) {
			echoStripped = true
			continue
		}
		if i == len(lines)-1 && promptRE.MatchString(strings.TrimSpace(line)) {
			continue
		}
		cleaned = append(cleaned, line)
	}
	out := strings.Join(cleaned, "\n")
	out = strings.TrimLeft(out, "\r\n")
	return strings.TrimRight(out, " \r\n")
}

// startKeepalive sends SSH keepalive requests so long-running captures on
// quiet channels do not get dropped by middleboxes.
func (s *Session) startKeepalive() {
	if s.cfg.KeepaliveSeconds <= 0 {
		return
	}
	s.keepaliveStop = make(chan struct{})
	interval := time.Duration(s.cfg.KeepaliveSeconds) * time.Second
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.keepaliveStop:
				return
			case <-ticker.C:
				_, _, err := s.client.SendRequest("keepalive@openssh.com", true, nil)
				if err != nil {
					return
				}
			}
		}
	}()
}

// Node returns the device this session is attached to.
func (s *Session) Node() string { return s.node }

// Close tears down the shell and the underlying SSH connection.
func (s *Session) Close() error {
	if s.keepaliveStop != nil {
		close(s.keepaliveStop)
		s.keepaliveStop = nil
	}
	var expErr error
	if s.exp != nil {
		expErr = s.exp.Close()
		s.exp = nil
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil && expErr == nil {
			expErr = err
		}
		s.client = nil
	}
	return expErr
}

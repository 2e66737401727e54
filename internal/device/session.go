package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	defaultConnectTimeout = 30 * time.Second
	defaultCommandTimeout = 60 * time.Second
)

// Capturer retrieves a device's running configuration in a single attempt.
type Capturer interface {
	Capture(ctx context.Context, target Target, command string) (CapturedConfig, error)
}

// Conn is the minimal connection surface the session needs. The concrete
// implementation wraps *ssh.Client; tests substitute fakes.
type Conn interface {
	NewSession() (CommandRunner, error)
	Close() error
}

// CommandRunner executes one non-interactive command on an open connection.
type CommandRunner interface {
	Output(cmd string) ([]byte, error)
	Close() error
}

// DialFunc establishes a connection to a device.
type DialFunc func(network, addr string, config *ssh.ClientConfig) (Conn, error)

// SSHSession captures device configurations over SSH. One command is
// executed per connection, without a pseudo-terminal, so device-side
// pagination and prompt handling never come into play.
type SSHSession struct {
	logger          zerolog.Logger
	connectTimeout  time.Duration
	commandTimeout  time.Duration
	hostKeyCallback ssh.HostKeyCallback
	dial            DialFunc
	now             func() time.Time
}

// Option customizes session behavior.
type Option func(*SSHSession)

// WithConnectTimeout sets the SSH dial timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *SSHSession) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithCommandTimeout sets the per-command completion bound.
func WithCommandTimeout(d time.Duration) Option {
	return func(s *SSHSession) {
		if d > 0 {
			s.commandTimeout = d
		}
	}
}

// WithDialer overrides how connections are established.
func WithDialer(dial DialFunc) Option {
	return func(s *SSHSession) {
		s.dial = dial
	}
}

// WithClock overrides the capture timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *SSHSession) {
		s.now = now
	}
}

// NewSSHSession builds a session factory for the fleet. Host key verification
// uses the known_hosts file at knownHostsPath; insecure skips verification
// entirely and is intended for legacy devices in controlled environments.
func NewSSHSession(logger zerolog.Logger, knownHostsPath string, insecure bool, opts ...Option) (*SSHSession, error) {
	callback, err := buildHostKeyCallback(logger, knownHostsPath, insecure)
	if err != nil {
		return nil, err
	}

	session := &SSHSession{
		logger:          logger,
		connectTimeout:  defaultConnectTimeout,
		commandTimeout:  defaultCommandTimeout,
		hostKeyCallback: callback,
		dial:            sshDial,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(session)
	}
	return session, nil
}

func buildHostKeyCallback(logger zerolog.Logger, knownHostsPath string, insecure bool) (ssh.HostKeyCallback, error) {
	if knownHostsPath != "" {
		callback, err := knownhosts.New(knownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("parse known_hosts file: %w", err)
		}
		return callback, nil
	}
	if insecure {
		logger.Warn().Msg("ssh host key verification is disabled; connections are insecure")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	return nil, errors.New("no ssh host key verification configured: set a known_hosts path or enable insecure_skip_verify")
}

func buildAuthMethods(target Target) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if target.PrivateKeyFile != "" {
		key, err := os.ReadFile(target.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if target.Password != "" {
		methods = append(methods, ssh.Password(target.Password))
	}

	if len(methods) == 0 {
		return nil, errors.New("no ssh authentication methods configured")
	}
	return methods, nil
}

func sshDial(network, addr string, config *ssh.ClientConfig) (Conn, error) {
	client, err := ssh.Dial(network, addr, config)
	if err != nil {
		return nil, err
	}
	return &sshConn{client: client}, nil
}

type sshConn struct {
	client *ssh.Client
}

func (c *sshConn) NewSession() (CommandRunner, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (c *sshConn) Close() error {
	return c.client.Close()
}

// Capture implements Capturer. The connection is closed on every exit path,
// including timeout and cancellation, so a hung device never leaks a session.
func (s *SSHSession) Capture(ctx context.Context, target Target, command string) (CapturedConfig, error) {
	methods, err := buildAuthMethods(target)
	if err != nil {
		return CapturedConfig{}, &AuthError{Addr: target.Addr(), Err: err}
	}

	config := &ssh.ClientConfig{
		User:            target.Username,
		Auth:            methods,
		HostKeyCallback: s.hostKeyCallback,
		Timeout:         s.connectTimeout,
	}

	addr := target.Addr()
	s.logger.Debug().Str("device", addr).Msg("connecting")

	conn, err := s.dial("tcp", addr, config)
	if err != nil {
		if isAuthFailure(err) {
			return CapturedConfig{}, &AuthError{Addr: addr, Err: err}
		}
		return CapturedConfig{}, &ConnectError{Addr: addr, Err: err}
	}
	defer conn.Close()

	runner, err := conn.NewSession()
	if err != nil {
		return CapturedConfig{}, &ConnectError{Addr: addr, Err: err}
	}
	defer runner.Close()

	type execResult struct {
		output []byte
		err    error
	}
	done := make(chan execResult, 1)
	go func() {
		output, err := runner.Output(command)
		done <- execResult{output: output, err: err}
	}()

	timer := time.NewTimer(s.commandTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		// Closing the connection unblocks the Output goroutine.
		_ = conn.Close()
		return CapturedConfig{}, ctx.Err()
	case <-timer.C:
		_ = conn.Close()
		return CapturedConfig{}, &TimeoutError{Addr: addr, Timeout: s.commandTimeout}
	case result := <-done:
		if result.err != nil {
			return CapturedConfig{}, &CommandError{Addr: addr, Command: command, Err: result.err}
		}
		return CapturedConfig{
			Target:     target,
			Text:       string(result.output),
			CapturedAt: s.now().UTC(),
		}, nil
	}
}

// isAuthFailure distinguishes credential rejection from transport failures.
// x/crypto/ssh reports both through the handshake error, so the message is
// the only discriminator available.
func isAuthFailure(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain")
}

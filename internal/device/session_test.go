package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

type fakeRunner struct {
	output []byte
	err    error
	block  chan struct{}
	closed bool
}

func (r *fakeRunner) Output(cmd string) ([]byte, error) {
	if r.block != nil {
		<-r.block
	}
	return r.output, r.err
}

func (r *fakeRunner) Close() error {
	r.closed = true
	return nil
}

type fakeConn struct {
	runner     *fakeRunner
	sessionErr error
	closed     int
}

func (c *fakeConn) NewSession() (CommandRunner, error) {
	if c.sessionErr != nil {
		return nil, c.sessionErr
	}
	return c.runner, nil
}

func (c *fakeConn) Close() error {
	c.closed++
	if c.runner != nil && c.runner.block != nil {
		select {
		case <-c.runner.block:
		default:
			close(c.runner.block)
		}
	}
	return nil
}

func newTestSession(t *testing.T, dial DialFunc, opts ...Option) *SSHSession {
	t.Helper()
	opts = append([]Option{WithDialer(dial)}, opts...)
	session, err := NewSSHSession(zerolog.Nop(), "", true, opts...)
	if err != nil {
		t.Fatalf("NewSSHSession error: %v", err)
	}
	return session
}

func testTarget() Target {
	return Target{Address: "10.0.0.1", Port: 22, Username: "ops", Password: "secret"}
}

func TestCaptureSuccess(t *testing.T) {
	conn := &fakeConn{runner: &fakeRunner{output: []byte("hostname edge-01\n")}}
	captured := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	session := newTestSession(t,
		func(network, addr string, config *ssh.ClientConfig) (Conn, error) {
			if addr != "10.0.0.1:22" {
				t.Fatalf("unexpected dial addr: %s", addr)
			}
			if config.User != "ops" {
				t.Fatalf("unexpected user: %s", config.User)
			}
			return conn, nil
		},
		WithClock(func() time.Time { return captured }),
	)

	got, err := session.Capture(context.Background(), testTarget(), "show running-config")
	if err != nil {
		t.Fatalf("Capture error: %v", err)
	}
	if got.Text != "hostname edge-01\n" {
		t.Fatalf("unexpected capture text: %q", got.Text)
	}
	if !got.CapturedAt.Equal(captured) {
		t.Fatalf("unexpected capture time: %s", got.CapturedAt)
	}
	if conn.closed == 0 {
		t.Fatal("expected connection to be closed")
	}
}

func TestCaptureConnectError(t *testing.T) {
	session := newTestSession(t, func(network, addr string, config *ssh.ClientConfig) (Conn, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	_, err := session.Capture(context.Background(), testTarget(), "show running-config")
	var connectErr *ConnectError
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected ConnectError, got %v", err)
	}
}

func TestCaptureAuthError(t *testing.T) {
	session := newTestSession(t, func(network, addr string, config *ssh.ClientConfig) (Conn, error) {
		return nil, errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [password]")
	})

	_, err := session.Capture(context.Background(), testTarget(), "show running-config")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestCaptureNoAuthMethods(t *testing.T) {
	session := newTestSession(t, func(network, addr string, config *ssh.ClientConfig) (Conn, error) {
		t.Fatal("dial should not be reached without auth methods")
		return nil, nil
	})

	_, err := session.Capture(context.Background(), Target{Address: "10.0.0.1", Username: "ops"}, "show running-config")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestCaptureCommandError(t *testing.T) {
	conn := &fakeConn{runner: &fakeRunner{err: errors.New("exited with status 1")}}
	session := newTestSession(t, func(network, addr string, config *ssh.ClientConfig) (Conn, error) {
		return conn, nil
	})

	_, err := session.Capture(context.Background(), testTarget(), "show running-config")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if conn.closed == 0 {
		t.Fatal("expected connection to be closed")
	}
}

func TestCaptureTimeout(t *testing.T) {
	conn := &fakeConn{runner: &fakeRunner{block: make(chan struct{})}}
	session := newTestSession(t,
		func(network, addr string, config *ssh.ClientConfig) (Conn, error) {
			return conn, nil
		},
		WithCommandTimeout(10*time.Millisecond),
	)

	start := time.Now()
	_, err := session.Capture(context.Background(), testTarget(), "show running-config")
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeout took too long: %s", elapsed)
	}
	if conn.closed == 0 {
		t.Fatal("expected connection to be closed on timeout")
	}
}

func TestCaptureContextCancel(t *testing.T) {
	conn := &fakeConn{runner: &fakeRunner{block: make(chan struct{})}}
	session := newTestSession(t, func(network, addr string, config *ssh.ClientConfig) (Conn, error) {
		return conn, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := session.Capture(ctx, testTarget(), "show running-config")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewSSHSessionRequiresVerification(t *testing.T) {
	if _, err := NewSSHSession(zerolog.Nop(), "", false); err == nil {
		t.Fatal("expected error when no host key verification is configured")
	}
}

func TestTargetAddrDefaultsPort(t *testing.T) {
	target := Target{Address: " 192.0.2.7 "}
	if got := target.Addr(); got != "192.0.2.7:22" {
		t.Fatalf("unexpected addr: %s", got)
	}
}

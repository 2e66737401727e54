package device

import (
	"fmt"
	"time"
)

// ConnectError reports a failed transport connection or SSH handshake.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// AuthError reports rejected credentials during the SSH handshake.
type AuthError struct {
	Addr string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authenticate %s: %v", e.Addr, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// TimeoutError reports a command that did not complete within the configured bound.
type TimeoutError struct {
	Addr    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command on %s timed out after %s", e.Addr, e.Timeout)
}

// CommandError reports a remote command that returned a failure where detectable.
type CommandError struct {
	Addr    string
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q on %s failed: %v", e.Command, e.Addr, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

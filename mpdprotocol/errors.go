package mpdprotocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for the MPD transport.
var (
	// ErrEmpty is returned by Pop on an empty queue. It never blocks.
	ErrEmpty = errors.New("queue is empty")

	// ErrClosed indicates the connection is no longer open.
	ErrClosed = errors.New("connection closed")

	// ErrBadGreeting indicates the server did not answer with an MPD greeting.
	ErrBadGreeting = errors.New("unexpected greeting")

	// ErrProbeTimeout indicates a keep-alive probe went unanswered.
	ErrProbeTimeout = errors.New("keep-alive probe unanswered")
)

// ConnectError represents a failure to establish a connection or complete
// the greeting handshake. It is fatal for the session.
type ConnectError struct {
	Addr    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connect %s: %s: %v", e.Addr, e.Message, e.Cause)
	}
	return fmt.Sprintf("connect %s: %s", e.Addr, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConnectError) Unwrap() error {
	return e.Cause
}

func newConnectError(addr, message string, cause error) error {
	return &ConnectError{Addr: addr, Message: message, Cause: cause}
}

// ScriptError is returned by RunScript when the script file cannot be read.
type ScriptError struct {
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("script %s: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ScriptError) Unwrap() error {
	return e.Cause
}

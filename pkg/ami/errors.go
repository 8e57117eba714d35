package ami

import (
	"errors"
	"fmt"
)

// Sentinel errors for the manager client.
var (
	// ErrInvalidCallback indicates Attach was given a nil listener or function.
	ErrInvalidCallback = errors.New("callback is not invocable")

	// ErrClosed indicates the client was closed before the write.
	ErrClosed = errors.New("client closed")
)

// DecodeError reports a block that yielded no headers.
type DecodeError struct {
	Block string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("no headers in block %q", e.Block)
}

// ActionFailureError is an explicit failure reply to a pending action or
// console command. Message carries the switch's text.
type ActionFailureError struct {
	Action   string
	ActionID string
	Message  string
}

// Error implements the error interface.
func (e *ActionFailureError) Error() string {
	if e.ActionID != "" {
		return fmt.Sprintf("action %s (%s) failed: %s", e.Action, e.ActionID, e.Message)
	}
	return fmt.Sprintf("action %s failed: %s", e.Action, e.Message)
}

// NotFoundKind names the kind of object the switch could not find.
type NotFoundKind string

const (
	NotFoundChannel    NotFoundKind = "channel"
	NotFoundExtension  NotFoundKind = "extension"
	NotFoundConference NotFoundKind = "conference"
)

// NotFoundError is returned when the switch reports that a channel or
// extension does not exist.
type NotFoundError struct {
	Kind    NotFoundKind
	Name    string
	Message string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "not found"
	}
	if e.Name == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s %q: %s", e.Kind, e.Name, msg)
}

// IsNotFound reports whether err is, or wraps, a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ListenerError wraps a panic recovered from a listener goroutine.
type ListenerError struct {
	Event string
	Panic any
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener for %q panicked: %v", e.Event, e.Panic)
}

// Unwrap exposes the panic value when it was an error.
func (e *ListenerError) Unwrap() error {
	if err, ok := e.Panic.(error); ok {
		return err
	}
	return nil
}

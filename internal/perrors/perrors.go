// Package perrors defines the daemon's error-kind taxonomy.
//
// Each kind is a distinct type so callers can branch on it with errors.As
// instead of matching on strings, while still composing with fmt.Errorf's
// %w the way the rest of the codebase does.
package perrors

import "fmt"

// ParseError signals a malformed command line: unknown command name, bad
// quoting, or a missing required argument.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return e.Msg }

// NewParseError builds a ParseError with a formatted message.
func NewParseError(format string, args ...any) *ParseError {
	return &ParseError{Msg: fmt.Sprintf(format, args...)}
}

// TargetNotFound signals that a %N / @N / session-name target did not
// resolve to a live object.
type TargetNotFound struct {
	Target string
}

func (e *TargetNotFound) Error() string {
	return fmt.Sprintf("target not found: %s", e.Target)
}

// SpawnError signals that a PTY or plugin child process could not start.
type SpawnError struct {
	What string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s: %v", e.What, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// IoError wraps a socket, PTY, or disk I/O failure.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string { return fmt.Sprintf("io error during %s: %v", e.Op, e.Err) }

func (e *IoError) Unwrap() error { return e.Err }

// ProtocolError signals a frame too large, invalid JSON, or an unexpected
// message type on the wire.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return e.Msg }

// NewProtocolError builds a ProtocolError with a formatted message.
func NewProtocolError(format string, args ...any) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

// Timeout signals that a plugin write exceeded its deadline.
type Timeout struct {
	What string
}

func (e *Timeout) Error() string { return fmt.Sprintf("timeout: %s", e.What) }

// SlowConsumer signals a client whose broadcast backlog overflowed.
type SlowConsumer struct {
	ClientID string
}

func (e *SlowConsumer) Error() string { return fmt.Sprintf("slow consumer: %s", e.ClientID) }

// InvariantViolation signals an internal bug. The command engine returns it
// like any other command error; it neither logs it nor shuts the daemon down.
type InvariantViolation struct {
	Msg string
}

func (e *InvariantViolation) Error() string { return fmt.Sprintf("invariant violation: %s", e.Msg) }

// NewInvariantViolation builds an InvariantViolation with a formatted message.
func NewInvariantViolation(format string, args ...any) *InvariantViolation {
	return &InvariantViolation{Msg: fmt.Sprintf(format, args...)}
}

// internal/scpi/errors.go
package scpi

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// ConnectError reports that a transport could not be opened: unreachable
// host, missing gateway, failed open-time negotiation. The session never
// retries it; callers may retry whole-session connects at a higher level.
type ConnectError struct {
	Target string
	Cause  error
}

func (e *ConnectError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to connect to %s: %v", e.Target, e.Cause)
	}
	return fmt.Sprintf("failed to connect to %s", e.Target)
}

func (e *ConnectError) Unwrap() error { return e.Cause }

// InstrumentError reports a write, query or read that failed after the
// retry budget was exhausted, or that was attempted with no open
// connection, or whose response the protocol could not parse.
type InstrumentError struct {
	Op    string
	Cmd   string
	Cause error
}

func (e *InstrumentError) Error() string {
	if e.Cmd != "" {
		return fmt.Sprintf("instrument %s %q failed: %v", e.Op, e.Cmd, e.Cause)
	}
	return fmt.Sprintf("instrument %s failed: %v", e.Op, e.Cause)
}

func (e *InstrumentError) Unwrap() error { return e.Cause }

// ConfigError reports an invalid address combination, an out-of-range bus
// number, or an unrecognized instrument model. Fatal immediately, never
// retried: retrying cannot fix a logic error.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return e.Reason }

// StatusError is reported by the vendor session layer when the instrument
// flags a command error through its status subsystem.
type StatusError struct {
	Cmd     string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("instrument status error after %q: %s", e.Cmd, e.Message)
}

var (
	errNotConnected  = errors.New("no connected instrument")
	errEmptyResponse = errors.New("empty response from instrument")
	errZeroWrite     = errors.New("zero bytes were written to instrument")
	errTimeout       = errors.New("i/o timeout")
)

// isTransient reports whether an I/O failure is plausibly caused by a
// dropped or idle connection and therefore worth a reconnect-and-retry.
// Everything else, status errors included, propagates immediately.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errEmptyResponse) || errors.Is(err, errZeroWrite) || errors.Is(err, errTimeout) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

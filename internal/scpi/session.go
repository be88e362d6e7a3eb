// internal/scpi/session.go
package scpi

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the connection lifecycle of one session. Ready is the only state
// in which write, query and read are permitted. Each session is owned by
// exactly one instrument adapter and never shared between adapters.
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateReady        State = "READY"
	StateFaulted      State = "FAULTED"
)

type dialFunc func(ctx context.Context, addr Address, opts Options) (Channel, Backend, error)

// Session is the single chokepoint every outbound command or query passes
// through. It sequences open -> clear -> identify on connect, masks
// transient I/O faults with a bounded reconnect-and-retry loop, and keeps
// calls strictly sequential: a query's write and read are one atomic unit,
// and nothing can interleave between them even across a retry-triggered
// reconnect.
type Session struct {
	addr   Address
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	ch      Channel
	backend Backend
	state   State
	ident   Identification

	// dial is swapped out by tests to inject failing channels.
	dial dialFunc
}

// NewSession builds a session for one instrument address. The session does
// not touch the transport until Connect.
func NewSession(addr Address, opts Options, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		addr:   addr,
		opts:   opts.withDefaults(),
		logger: logger.With(zap.String("address", addr.String())),
		state:  StateDisconnected,
		dial:   openTransport,
	}
}

// Connect opens the transport, clears device buffers per backend rules, and
// identifies the instrument. On success the session is Ready; on failure it
// is Faulted and the returned error says why.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(ctx)
}

func (s *Session) connectLocked(ctx context.Context) error {
	if s.state == StateReady && s.ch != nil {
		return nil
	}

	s.state = StateConnecting
	ch, backend, err := s.dial(ctx, s.addr, s.opts)
	if err != nil {
		s.state = StateFaulted
		return err
	}
	s.ch = ch
	s.backend = backend

	if err := s.identifyLocked(); err != nil {
		ch.Close()
		s.ch = nil
		s.state = StateFaulted
		return err
	}

	s.state = StateReady
	s.logger.Info("Instrument connected",
		zap.String("backend", string(backend)),
		zap.String("model", s.ident.Model),
		zap.String("serial_number", s.ident.SerialNumber),
	)
	return nil
}

// Close releases the channel and returns the session to Disconnected.
// Closing an already-closed session is a no-op, not an error.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch == nil {
		s.state = StateDisconnected
		return nil
	}

	err := s.ch.Close()
	s.ch = nil
	s.state = StateDisconnected
	s.logger.Info("Instrument connection closed")
	return err
}

// Identify issues the universal identification query and replaces the
// stored record wholesale. A malformed response propagates as is: it
// indicates a protocol mismatch, not a transient fault.
func (s *Session) Identify() (Identification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch == nil {
		return Identification{}, &InstrumentError{Op: "identify", Cause: errNotConnected}
	}
	if err := s.identifyLocked(); err != nil {
		return Identification{}, err
	}
	return s.ident, nil
}

// identifyLocked runs a single identification exchange on the open channel.
// It deliberately bypasses the retry machinery: identification happens
// inside connect, and reconnecting from here would recurse.
func (s *Session) identifyLocked() error {
	if _, err := s.ch.WriteString("*IDN?\n"); err != nil {
		return &InstrumentError{Op: "identify", Cause: err}
	}
	raw, err := s.ch.ReadString()
	if err != nil {
		return &InstrumentError{Op: "identify", Cause: err}
	}

	ident, err := ParseIdentification(raw)
	if err != nil {
		return &InstrumentError{Op: "identify", Cause: err}
	}
	s.ident = ident
	return nil
}

// Write sends a command with no response expected. Transient I/O faults and
// zero-byte writes trigger the bounded reconnect-and-retry loop; any other
// failure propagates immediately.
func (s *Session) Write(command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch == nil {
		return &InstrumentError{Op: "write", Cmd: command, Cause: errNotConnected}
	}

	if s.backend == BackendHiSLIP {
		// The vendor session layer owns retry and status semantics; a
		// second retry loop here would corrupt command ordering.
		if _, err := s.ch.WriteString(command + "\n"); err != nil {
			return &InstrumentError{Op: "write", Cmd: command, Cause: err}
		}
		return nil
	}

	attempts := 0
	for {
		n, err := s.ch.WriteString(command + "\n")
		if err == nil && n > 0 {
			return nil
		}
		if err != nil && !isTransient(err) {
			return err
		}
		if err == nil {
			err = errZeroWrite
		}
		if rerr := s.recoverLocked("write", command, err, &attempts); rerr != nil {
			return rerr
		}
	}
}

// Query sends a command and reads its response in one bus transaction. An
// empty response counts as a transient fault and is retried like an I/O
// error.
func (s *Session) Query(command string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch == nil {
		return "", &InstrumentError{Op: "query", Cmd: command, Cause: errNotConnected}
	}

	if s.backend == BackendHiSLIP {
		resp, err := s.transactLocked(command)
		if err != nil {
			return "", &InstrumentError{Op: "query", Cmd: command, Cause: err}
		}
		return resp, nil
	}

	attempts := 0
	for {
		resp, err := s.transactLocked(command)
		if err == nil && resp != "" {
			return resp, nil
		}
		if err != nil && !isTransient(err) {
			return "", err
		}
		if err == nil {
			err = fmt.Errorf("query %q: %w", command, errEmptyResponse)
		}
		if rerr := s.recoverLocked("query", command, err, &attempts); rerr != nil {
			return "", rerr
		}
	}
}

func (s *Session) transactLocked(command string) (string, error) {
	if _, err := s.ch.WriteString(command + "\n"); err != nil {
		return "", err
	}
	return s.ch.ReadString()
}

// Read performs a raw read with no preceding write, for multi-step
// protocols such as operation-complete polling. Only the streaming-capable
// backends support it.
func (s *Session) Read() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch == nil {
		return "", &InstrumentError{Op: "read", Cause: errNotConnected}
	}
	if !s.backend.SupportsRead() {
		return "", &ConfigError{Reason: fmt.Sprintf("read is not supported on the %s backend", s.backend)}
	}

	attempts := 0
	for {
		resp, err := s.ch.ReadString()
		if err == nil {
			return resp, nil
		}
		if !isTransient(err) {
			return "", err
		}
		if rerr := s.recoverLocked("read", "", err, &attempts); rerr != nil {
			return "", rerr
		}
	}
}

// recoverLocked runs one recovery cycle: close the dead channel, re-run the
// full connection lifecycle against the same address, and charge the
// call-scoped retry budget. Budget exhaustion yields the terminal
// InstrumentError carrying the last transient cause; a reconnect failure
// propagates as a ConnectError since no amount of retrying this call can
// open the transport.
func (s *Session) recoverLocked(op, cmd string, cause error, attempts *int) error {
	if s.ch != nil {
		s.ch.Close()
		s.ch = nil
	}
	*attempts++

	s.logger.Warn("Transient instrument fault, reconnecting",
		zap.String("operation", op),
		zap.Int("attempt", *attempts),
		zap.Int("max_attempts", s.opts.MaxAttempts),
		zap.Error(cause),
	)

	if err := s.connectLocked(context.Background()); err != nil {
		return err
	}

	if *attempts >= s.opts.MaxAttempts {
		if s.ch != nil {
			s.ch.Close()
			s.ch = nil
		}
		s.state = StateFaulted
		return &InstrumentError{
			Op:    op,
			Cmd:   cmd,
			Cause: fmt.Errorf("retries exhausted after %d attempts: %w", *attempts, cause),
		}
	}
	return nil
}

// Reset issues the conventional reset directive.
func (s *Session) Reset() error {
	return s.Write("*RST")
}

// WaitComplete blocks until the instrument reports the previous operation
// finished, polling *OPC? at the given interval.
func (s *Session) WaitComplete(poll time.Duration) error {
	for {
		resp, err := s.Query("*OPC?")
		if err != nil {
			return err
		}
		if v := trimResponse(resp); v != "" && v != "0" {
			return nil
		}
		time.Sleep(poll)
	}
}

// SetTimeout sets the I/O timeout on the open channel.
func (s *Session) SetTimeout(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil {
		return &InstrumentError{Op: "set_timeout", Cause: errNotConnected}
	}
	return s.ch.SetTimeout(d)
}

// GetTimeout reads the current I/O timeout from the open channel.
func (s *Session) GetTimeout() (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil {
		return 0, &InstrumentError{Op: "get_timeout", Cause: errNotConnected}
	}
	return s.ch.Timeout(), nil
}

// WithTimeout runs fn under a temporary I/O timeout and restores the
// original on every exit path, panics included. Long-running operations
// such as instrument state recall raise the timeout this way.
func (s *Session) WithTimeout(d time.Duration, fn func() error) error {
	old, err := s.GetTimeout()
	if err != nil {
		return err
	}
	if err := s.SetTimeout(d); err != nil {
		return err
	}
	defer s.SetTimeout(old)
	return fn()
}

// SetStatusChecking toggles per-command status verification. Only sessions
// on the vendor session layer support it.
func (s *Session) SetStatusChecking(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hc, ok := s.ch.(*hislipChannel)
	if !ok {
		return &ConfigError{Reason: "status checking is not available on this backend"}
	}
	hc.setStatusChecking(on)
	return nil
}

// Identification returns the record captured by the last successful
// identify.
func (s *Session) Identification() Identification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ident
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Backend returns the tag of the transport that produced the open channel.
func (s *Session) Backend() Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend
}

// Address returns the transport address this session was built for.
func (s *Session) Address() Address { return s.addr }

// Connectable is the lifecycle surface shared by sessions and the adapters
// built on top of them.
type Connectable interface {
	Connect(ctx context.Context) error
	Close() error
}

// Acquire is the scoped-acquisition helper: connect, run fn, and close on
// every exit path so orchestration code cannot leak open connections. The
// connected object is the one the caller passed in, already usable inside
// fn.
func Acquire(ctx context.Context, c Connectable, fn func() error) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close()
	return fn()
}

func trimResponse(s string) string {
	return strings.TrimRight(s, " \t\r\n")
}

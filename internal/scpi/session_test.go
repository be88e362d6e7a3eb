// internal/scpi/session_test.go
package scpi

import (
	"context"
	"errors"
	"strings"
	"syscall"
	"testing"
	"time"
)

// fakeChannel is a scripted channel handed out by fakeDialer. Identification
// always succeeds so reconnects can complete; the injected failure applies
// to every other command.
type fakeChannel struct {
	id         int
	idn        string
	writeErr   error
	zeroWrites int
	emptyReads int
	writes     []string
	lastWrite  string
	timeout    time.Duration
	closed     int
}

func (c *fakeChannel) WriteString(s string) (int, error) {
	cmd := strings.TrimRight(s, "\n")
	c.writes = append(c.writes, cmd)
	c.lastWrite = cmd

	if cmd == "*IDN?" {
		return len(s), nil
	}
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	if c.zeroWrites > 0 {
		c.zeroWrites--
		return 0, nil
	}
	return len(s), nil
}

func (c *fakeChannel) ReadString() (string, error) {
	if c.lastWrite == "*IDN?" {
		return c.idn + "\n", nil
	}
	if c.emptyReads > 0 {
		c.emptyReads--
		return "", nil
	}
	return "42\n", nil
}

func (c *fakeChannel) SetTimeout(d time.Duration) error { c.timeout = d; return nil }
func (c *fakeChannel) Timeout() time.Duration           { return c.timeout }
func (c *fakeChannel) Close() error                     { c.closed++; return nil }

// fakeDialer issues a fresh channel per connect. Channels numbered up to
// failing carry the injected write error.
type fakeDialer struct {
	backend    Backend
	failing    int
	writeErr   error
	zeroFirst  int
	emptyFirst int
	channels   []*fakeChannel
}

func (d *fakeDialer) dial(_ context.Context, _ Address, opts Options) (Channel, Backend, error) {
	ch := &fakeChannel{
		id:      len(d.channels) + 1,
		idn:     "Acme,Model-X,SN123,1.2.3",
		timeout: opts.Timeout,
	}
	if ch.id <= d.failing {
		ch.writeErr = d.writeErr
	}
	if ch.id == 1 {
		ch.zeroWrites = d.zeroFirst
		ch.emptyReads = d.emptyFirst
	}
	d.channels = append(d.channels, ch)
	return ch, d.backend, nil
}

func newTestSession(t *testing.T, d *fakeDialer, maxAttempts int) *Session {
	t.Helper()
	s := NewSession(Address{Host: "bench.lab"}, Options{MaxAttempts: maxAttempts}, nil)
	s.dial = d.dial
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	return s
}

func TestConnectIdentifiesAndBecomesReady(t *testing.T) {
	d := &fakeDialer{backend: BackendTCP}
	s := newTestSession(t, d, 10)

	if s.State() != StateReady {
		t.Fatalf("state = %s, want %s", s.State(), StateReady)
	}
	id := s.Identification()
	if id.Model != "Model-X" || id.Firmware != "1.2.3" {
		t.Fatalf("unexpected identification: %+v", id)
	}
	if s.Backend() != BackendTCP {
		t.Fatalf("backend = %s, want %s", s.Backend(), BackendTCP)
	}
}

func TestWriteRecoversFromTransientFaults(t *testing.T) {
	d := &fakeDialer{backend: BackendTCP, failing: 3, writeErr: syscall.ECONNRESET}
	s := newTestSession(t, d, 10)

	if err := s.Write("OUTPUT:STATE 1"); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	if len(d.channels) != 4 {
		t.Fatalf("dialed %d channels, want 4", len(d.channels))
	}
	for _, ch := range d.channels[:3] {
		if ch.closed != 1 {
			t.Fatalf("channel %d closed %d times, want 1", ch.id, ch.closed)
		}
		// Each recovery cycle re-runs the full lifecycle, including
		// identification.
		if ch.writes[0] != "*IDN?" {
			t.Fatalf("channel %d first write = %q, want *IDN?", ch.id, ch.writes[0])
		}
	}
	if s.State() != StateReady {
		t.Fatalf("state = %s, want %s", s.State(), StateReady)
	}
}

func TestWriteExhaustsRetryBudget(t *testing.T) {
	d := &fakeDialer{backend: BackendTCP, failing: 100, writeErr: syscall.ECONNRESET}
	s := newTestSession(t, d, 3)

	err := s.Write("OUTPUT:STATE 1")
	var instErr *InstrumentError
	if !errors.As(err, &instErr) {
		t.Fatalf("Write error = %v, want *InstrumentError", err)
	}
	if !errors.Is(err, syscall.ECONNRESET) {
		t.Fatalf("error chain lost the transient cause: %v", err)
	}

	// Initial connect plus exactly MaxAttempts reconnect cycles.
	if len(d.channels) != 4 {
		t.Fatalf("dialed %d channels, want 4", len(d.channels))
	}
	for _, ch := range d.channels {
		if ch.closed != 1 {
			t.Fatalf("channel %d closed %d times, want 1", ch.id, ch.closed)
		}
	}
	if s.State() != StateFaulted {
		t.Fatalf("state = %s, want %s", s.State(), StateFaulted)
	}
}

func TestRetryBudgetIsCallScoped(t *testing.T) {
	d := &fakeDialer{backend: BackendTCP, failing: 2, writeErr: syscall.ECONNRESET}
	s := newTestSession(t, d, 3)

	if err := s.Write("FREQ 28GHz"); err != nil {
		t.Fatalf("first Write returned error: %v", err)
	}

	// Two more transient faults on the next call: a shared budget would
	// exhaust here, a call-scoped one must not.
	d.failing = 4
	d.channels[2].writeErr = syscall.ECONNRESET

	if err := s.Write("POW -10dBm"); err != nil {
		t.Fatalf("second Write returned error: %v", err)
	}
	if len(d.channels) != 5 {
		t.Fatalf("dialed %d channels, want 5", len(d.channels))
	}
}

func TestWriteRetriesZeroByteWrite(t *testing.T) {
	d := &fakeDialer{backend: BackendTCP, zeroFirst: 1}
	s := newTestSession(t, d, 10)

	if err := s.Write("OUTPUT:STATE 1"); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if len(d.channels) != 2 {
		t.Fatalf("dialed %d channels, want 2", len(d.channels))
	}
}

func TestQueryRetriesEmptyResponse(t *testing.T) {
	d := &fakeDialer{backend: BackendTCP, emptyFirst: 1}
	s := newTestSession(t, d, 10)

	resp, err := s.Query("MEAS:VOLT? (@1)")
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if strings.TrimSpace(resp) != "42" {
		t.Fatalf("Query = %q, want 42", resp)
	}
	if len(d.channels) != 2 {
		t.Fatalf("dialed %d channels, want 2", len(d.channels))
	}
}

func TestNonTransientFailurePropagatesImmediately(t *testing.T) {
	rejected := errors.New("command rejected")
	d := &fakeDialer{backend: BackendTCP, failing: 1, writeErr: rejected}
	s := newTestSession(t, d, 10)

	err := s.Write("BOGUS:CMD")
	if !errors.Is(err, rejected) {
		t.Fatalf("Write error = %v, want %v", err, rejected)
	}
	if len(d.channels) != 1 {
		t.Fatalf("dialed %d channels, want 1 (no retry)", len(d.channels))
	}
}

func TestVendorSessionLayerMakesSingleAttempt(t *testing.T) {
	d := &fakeDialer{backend: BackendHiSLIP, failing: 10, writeErr: syscall.ECONNRESET}
	s := newTestSession(t, d, 10)

	err := s.Write("OUTPUT:STATE 1")
	var instErr *InstrumentError
	if !errors.As(err, &instErr) {
		t.Fatalf("Write error = %v, want *InstrumentError", err)
	}
	if len(d.channels) != 1 {
		t.Fatalf("dialed %d channels, want 1 (middleware owns retry)", len(d.channels))
	}
}

func TestReadRequiresStreamingBackend(t *testing.T) {
	d := &fakeDialer{backend: BackendSerial}
	s := newTestSession(t, d, 10)

	_, err := s.Read()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Read error = %v, want *ConfigError", err)
	}
}

func TestOperationsFailWithoutConnection(t *testing.T) {
	s := NewSession(Address{Host: "bench.lab"}, Options{}, nil)

	var instErr *InstrumentError
	if err := s.Write("*RST"); !errors.As(err, &instErr) {
		t.Fatalf("Write error = %v, want *InstrumentError", err)
	}
	if _, err := s.Query("*IDN?"); !errors.As(err, &instErr) {
		t.Fatalf("Query error = %v, want *InstrumentError", err)
	}
	if _, err := s.Read(); !errors.As(err, &instErr) {
		t.Fatalf("Read error = %v, want *InstrumentError", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	d := &fakeDialer{backend: BackendTCP}
	s := newTestSession(t, d, 10)

	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
	if s.State() != StateDisconnected {
		t.Fatalf("state = %s, want %s", s.State(), StateDisconnected)
	}
	if d.channels[0].closed != 1 {
		t.Fatalf("channel closed %d times, want 1", d.channels[0].closed)
	}
}

func TestScopedTimeoutRestoredOnError(t *testing.T) {
	d := &fakeDialer{backend: BackendTCP}
	s := newTestSession(t, d, 10)

	if err := s.SetTimeout(2 * time.Second); err != nil {
		t.Fatalf("SetTimeout returned error: %v", err)
	}

	boom := errors.New("measurement aborted")
	err := s.WithTimeout(30*time.Second, func() error {
		if got, _ := s.GetTimeout(); got != 30*time.Second {
			t.Fatalf("timeout inside override = %v, want 30s", got)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTimeout error = %v, want %v", err, boom)
	}

	if got, _ := s.GetTimeout(); got != 2*time.Second {
		t.Fatalf("timeout after override = %v, want 2s", got)
	}
}

func TestScopedTimeoutRestoredOnPanic(t *testing.T) {
	d := &fakeDialer{backend: BackendTCP}
	s := newTestSession(t, d, 10)

	if err := s.SetTimeout(2 * time.Second); err != nil {
		t.Fatalf("SetTimeout returned error: %v", err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		s.WithTimeout(time.Minute, func() error {
			panic("mid-operation failure")
		})
	}()

	if got, _ := s.GetTimeout(); got != 2*time.Second {
		t.Fatalf("timeout after panic = %v, want 2s", got)
	}
}

// countingConn records lifecycle calls for the scoped-acquisition tests.
type countingConn struct {
	connects   int
	closes     int
	connectErr error
}

func (c *countingConn) Connect(context.Context) error {
	c.connects++
	return c.connectErr
}

func (c *countingConn) Close() error {
	c.closes++
	return nil
}

func TestAcquireClosesOnFailure(t *testing.T) {
	conn := &countingConn{}
	boom := errors.New("sweep step failed")

	err := Acquire(context.Background(), conn, func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Acquire error = %v, want %v", err, boom)
	}
	if conn.closes != 1 {
		t.Fatalf("close called %d times, want 1", conn.closes)
	}
}

func TestAcquireClosesOnPanic(t *testing.T) {
	conn := &countingConn{}

	func() {
		defer func() { recover() }()
		Acquire(context.Background(), conn, func() error {
			panic("orchestration bug")
		})
	}()

	if conn.closes != 1 {
		t.Fatalf("close called %d times, want 1", conn.closes)
	}
}

func TestAcquireSkipsBodyWhenConnectFails(t *testing.T) {
	conn := &countingConn{connectErr: errors.New("unreachable")}
	ran := false

	err := Acquire(context.Background(), conn, func() error { ran = true; return nil })
	if err == nil {
		t.Fatalf("Acquire succeeded, want connect error")
	}
	if ran {
		t.Fatalf("body ran despite failed connect")
	}
	if conn.closes != 0 {
		t.Fatalf("close called %d times, want 0", conn.closes)
	}
}

func TestSimulatedSessionLifecycle(t *testing.T) {
	s := NewSession(Address{Host: "bench.lab"}, Options{
		Simulate: true,
		SimResponses: map[string]string{
			"MEAS:VOLT? (@1)": "3.300",
		},
	}, nil)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if s.Backend() != BackendSim {
		t.Fatalf("backend = %s, want %s", s.Backend(), BackendSim)
	}
	if s.Identification().Model != "SIM100" {
		t.Fatalf("model = %q, want SIM100", s.Identification().Model)
	}

	resp, err := s.Query("MEAS:VOLT? (@1)")
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if strings.TrimSpace(resp) != "3.300" {
		t.Fatalf("Query = %q, want 3.300", resp)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestConnectFailsOnMalformedIdentification(t *testing.T) {
	s := NewSession(Address{Host: "bench.lab"}, Options{
		Simulate: true,
		SimResponses: map[string]string{
			"*IDN?": "OnlyTwo,Fields",
		},
	}, nil)

	err := s.Connect(context.Background())
	var instErr *InstrumentError
	if !errors.As(err, &instErr) {
		t.Fatalf("Connect error = %v, want *InstrumentError", err)
	}
	if s.State() != StateFaulted {
		t.Fatalf("state = %s, want %s", s.State(), StateFaulted)
	}
}

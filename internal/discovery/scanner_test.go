// internal/discovery/scanner_test.go
package discovery

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"instrument-service/internal/scpi"
)

type stubScanner struct {
	kind       string
	available  bool
	candidates []*Candidate
	err        error
	scans      int
}

func (s *stubScanner) Scan(ctx context.Context) ([]*Candidate, error) {
	s.scans++
	return s.candidates, s.err
}

func (s *stubScanner) Type() string    { return s.kind }
func (s *stubScanner) Available() bool { return s.available }

func TestScanAllMergesInRegistrationOrder(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.Register(&stubScanner{kind: "serial", available: true, candidates: []*Candidate{
		{Backend: scpi.BackendSerial, Address: "ASRL::/dev/ttyUSB0::INSTR", Confidence: 0.2},
	}})
	m.Register(&stubScanner{kind: "tcp", available: true, candidates: []*Candidate{
		{Backend: scpi.BackendTCP, Address: "TCPIP::192.0.2.10::INSTR", Confidence: 0.95},
	}})

	candidates, err := m.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Backend != scpi.BackendSerial || candidates[1].Backend != scpi.BackendTCP {
		t.Fatalf("candidates out of registration order: %v, %v",
			candidates[0].Backend, candidates[1].Backend)
	}
}

func TestScanAllSkipsUnavailableAndFailingScanners(t *testing.T) {
	m := NewManager(zap.NewNop())
	offline := &stubScanner{kind: "usb", available: false}
	broken := &stubScanner{kind: "serial", available: true, err: errors.New("enumeration failed")}
	working := &stubScanner{kind: "tcp", available: true, candidates: []*Candidate{
		{Backend: scpi.BackendTCP, Address: "TCPIP::192.0.2.10::INSTR"},
	}}
	m.Register(offline)
	m.Register(broken)
	m.Register(working)

	candidates, err := m.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}
	if offline.scans != 0 {
		t.Fatalf("unavailable scanner was run %d times", offline.scans)
	}
	if len(candidates) != 1 || candidates[0].Backend != scpi.BackendTCP {
		t.Fatalf("expected the working scanner's candidate, got %+v", candidates)
	}
}

func TestScanByType(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.Register(&stubScanner{kind: "tcp", available: true, candidates: []*Candidate{
		{Backend: scpi.BackendTCP, Address: "TCPIP::192.0.2.10::INSTR"},
	}})
	m.Register(&stubScanner{kind: "usb", available: false})

	candidates, err := m.ScanByType(context.Background(), "tcp")
	if err != nil {
		t.Fatalf("ScanByType(tcp) failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	if _, err := m.ScanByType(context.Background(), "gpib"); err == nil {
		t.Fatal("expected error for unknown scanner type")
	}
	if _, err := m.ScanByType(context.Background(), "usb"); err == nil {
		t.Fatal("expected error for unavailable scanner")
	}
}

func TestAvailableScanners(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.Register(&stubScanner{kind: "serial", available: true})
	m.Register(&stubScanner{kind: "usb", available: false})
	m.Register(&stubScanner{kind: "tcp", available: true})

	got := m.AvailableScanners()
	want := []string{"serial", "tcp"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

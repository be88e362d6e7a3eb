// internal/discovery/tcp/scanner_test.go
package tcp

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"instrument-service/internal/scpi"
)

// fakeInstrument answers *IDN? on a loopback listener the way a raw-socket
// instrument would.
func fakeInstrument(t *testing.T, idn string) (host string, port int) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				reader := bufio.NewReader(conn)
				for {
					line, err := reader.ReadString('\n')
					if err != nil {
						return
					}
					if strings.TrimSpace(line) == "*IDN?" {
						conn.Write([]byte(idn + "\n"))
					}
				}
			}(conn)
		}
	}()

	addr := listener.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

// unusedPort reserves and releases an ephemeral port so nothing answers there.
func unusedPort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()
	return port
}

func TestScanIdentifiesRawSocketInstrument(t *testing.T) {
	host, port := fakeInstrument(t, "Rohde&Schwarz,FSW26,100002,3.20")

	scanner := NewScanner(zap.NewNop(), &Config{
		Hosts:          []string{host},
		ConnTimeout:    time.Second,
		IdentifyOnScan: true,
		RawPort:        port,
		HiSLIPPort:     unusedPort(t),
	})

	candidates, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	c := candidates[0]
	if c.Backend != scpi.BackendTCP {
		t.Fatalf("expected TCP backend, got %v", c.Backend)
	}
	if c.Identity == nil || c.Identity.Model != "FSW26" {
		t.Fatalf("expected identified FSW26, got %+v", c.Identity)
	}
	if c.Confidence != 0.95 {
		t.Fatalf("expected confidence 0.95 for identified candidate, got %v", c.Confidence)
	}
	if c.Address != "TCPIP::"+host+"::INSTR" {
		t.Fatalf("unexpected address %q", c.Address)
	}
}

func TestScanWithoutIdentificationKeepsLowerConfidence(t *testing.T) {
	host, port := fakeInstrument(t, "Rohde&Schwarz,SMW200A,100001,4.70.026")

	scanner := NewScanner(zap.NewNop(), &Config{
		Hosts:       []string{host},
		ConnTimeout: time.Second,
		RawPort:     port,
		HiSLIPPort:  unusedPort(t),
	})

	candidates, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Identity != nil {
		t.Fatalf("expected no identity without IdentifyOnScan, got %+v", candidates[0].Identity)
	}
	if candidates[0].Confidence != 0.7 {
		t.Fatalf("expected confidence 0.7, got %v", candidates[0].Confidence)
	}
}

func TestScanSkipsUnreachableHosts(t *testing.T) {
	scanner := NewScanner(zap.NewNop(), &Config{
		Hosts:       []string{"127.0.0.1"},
		ConnTimeout: 200 * time.Millisecond,
		RawPort:     unusedPort(t),
		HiSLIPPort:  unusedPort(t),
	})

	candidates, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(candidates))
	}
}

func TestScanReportsHiSLIPOnlyHost(t *testing.T) {
	// A listener that accepts and says nothing stands in for the HiSLIP port.
	host, port := fakeInstrument(t, "")

	scanner := NewScanner(zap.NewNop(), &Config{
		Hosts:       []string{host},
		ConnTimeout: 200 * time.Millisecond,
		RawPort:     unusedPort(t),
		HiSLIPPort:  port,
	})

	candidates, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Backend != scpi.BackendHiSLIP {
		t.Fatalf("expected HiSLIP backend, got %v", candidates[0].Backend)
	}
	if candidates[0].Identity != nil {
		t.Fatal("HiSLIP probe must not identify the instrument")
	}
}

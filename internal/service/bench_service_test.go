// internal/service/bench_service_test.go
package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"instrument-service/internal/config"
	"instrument-service/internal/instrument"
	"instrument-service/internal/model"
	"instrument-service/internal/scpi"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []model.BenchEvent
}

func (r *eventRecorder) Publish(event model.BenchEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) ofType(eventType model.EventType) []model.BenchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.BenchEvent
	for _, e := range r.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func simBenchConfig() *config.Config {
	return &config.Config{
		Bench: config.BenchConfig{
			Simulate:    true,
			Timeout:     time.Second,
			MaxAttempts: 3,
			Instruments: []config.InstrumentConfig{
				{
					Name:   "siggen",
					Host:   "192.0.2.10",
					SimIDN: "Rohde&Schwarz,SMW200A,100001,4.70.026",
				},
				{
					Name:   "analyzer",
					Host:   "192.0.2.11",
					SimIDN: "Rohde&Schwarz,FSW26,100002,3.20",
				},
			},
		},
		Sweep: config.SweepConfig{OPCPoll: time.Millisecond},
	}
}

func newSimBench(t *testing.T, cfg *config.Config) (*BenchService, *eventRecorder) {
	t.Helper()

	registry := scpi.NewRegistry(zap.NewNop())
	instrument.RegisterDefaults(registry, zap.NewNop())

	events := &eventRecorder{}
	bs, err := NewBenchService(cfg, registry, events, zap.NewNop())
	if err != nil {
		t.Fatalf("NewBenchService: %v", err)
	}
	return bs, events
}

func TestConnectResolvesSimulatedInstrument(t *testing.T) {
	bs, events := newSimBench(t, simBenchConfig())

	if err := bs.Connect(context.Background(), "siggen"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	var siggen *model.BenchInstrument
	for _, bi := range bs.Status() {
		if bi.Name == "siggen" {
			inst := bi
			siggen = &inst
		}
	}
	if siggen == nil {
		t.Fatal("siggen missing from bench status")
	}
	if siggen.State != model.InstrumentReady {
		t.Fatalf("state = %s, want %s", siggen.State, model.InstrumentReady)
	}
	if siggen.Model != "SMW200A" {
		t.Fatalf("model = %q, want SMW200A", siggen.Model)
	}
	if siggen.Backend != string(scpi.BackendSim) {
		t.Fatalf("backend = %q, want %s", siggen.Backend, scpi.BackendSim)
	}
	if siggen.LastSeen == nil {
		t.Fatal("last_seen not recorded")
	}

	connected := events.ofType(model.EventInstrumentConnected)
	if len(connected) != 1 || connected[0].Instrument != "siggen" {
		t.Fatalf("connected events = %+v, want one for siggen", connected)
	}
}

func TestConnectIsIdempotentWhileReady(t *testing.T) {
	bs, events := newSimBench(t, simBenchConfig())

	if err := bs.Connect(context.Background(), "siggen"); err != nil {
		t.Fatalf("first Connect: %v", err)
	}
	if err := bs.Connect(context.Background(), "siggen"); err != nil {
		t.Fatalf("second Connect: %v", err)
	}

	if got := len(events.ofType(model.EventInstrumentConnected)); got != 1 {
		t.Fatalf("connected events = %d, want 1", got)
	}
}

func TestConnectUnknownInstrument(t *testing.T) {
	bs, _ := newSimBench(t, simBenchConfig())

	if err := bs.Connect(context.Background(), "nonexistent"); err == nil {
		t.Fatal("expected error for unknown instrument name")
	}
	if _, err := bs.Instrument("nonexistent"); err == nil {
		t.Fatal("expected error for unknown instrument name")
	}
}

func TestConnectUnrecognizedModelFaults(t *testing.T) {
	cfg := simBenchConfig()
	cfg.Bench.Instruments = append(cfg.Bench.Instruments, config.InstrumentConfig{
		Name:   "mystery",
		Host:   "192.0.2.12",
		SimIDN: "Acme,XYZ999,000001,0.1",
	})
	bs, events := newSimBench(t, cfg)

	if err := bs.Connect(context.Background(), "mystery"); err == nil {
		t.Fatal("expected resolve failure for unclaimed model")
	}

	faulted := events.ofType(model.EventInstrumentFaulted)
	if len(faulted) != 1 || faulted[0].Instrument != "mystery" {
		t.Fatalf("faulted events = %+v, want one for mystery", faulted)
	}
}

func TestInstrumentRequiresConnection(t *testing.T) {
	bs, _ := newSimBench(t, simBenchConfig())

	if _, err := bs.Instrument("siggen"); err == nil {
		t.Fatal("expected error before Connect")
	}
}

func TestDisconnectPublishesEvent(t *testing.T) {
	bs, events := newSimBench(t, simBenchConfig())

	if err := bs.Connect(context.Background(), "siggen"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := bs.Disconnect("siggen"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	if got := len(events.ofType(model.EventInstrumentDisconnected)); got != 1 {
		t.Fatalf("disconnected events = %d, want 1", got)
	}

	for _, bi := range bs.Status() {
		if bi.Name == "siggen" && bi.State != model.InstrumentDisconnected {
			t.Fatalf("state after disconnect = %s", bi.State)
		}
	}
}

func TestConnectAllThenCloseAll(t *testing.T) {
	bs, _ := newSimBench(t, simBenchConfig())

	if err := bs.ConnectAll(context.Background()); err != nil {
		t.Fatalf("ConnectAll: %v", err)
	}
	for _, bi := range bs.Status() {
		if bi.State != model.InstrumentReady {
			t.Fatalf("instrument %s state = %s, want %s", bi.Name, bi.State, model.InstrumentReady)
		}
	}

	bs.CloseAll()
	for _, bi := range bs.Status() {
		if bi.State != model.InstrumentDisconnected {
			t.Fatalf("instrument %s state = %s after CloseAll", bi.Name, bi.State)
		}
	}
}

func TestIdentifyReturnsFreshRecord(t *testing.T) {
	bs, _ := newSimBench(t, simBenchConfig())

	if err := bs.Connect(context.Background(), "analyzer"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ident, err := bs.Identify("analyzer")
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if ident.Model != "FSW26" {
		t.Fatalf("model = %q, want FSW26", ident.Model)
	}
	if ident.Manufacturer != "Rohde&Schwarz" {
		t.Fatalf("manufacturer = %q", ident.Manufacturer)
	}
}

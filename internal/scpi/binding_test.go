// internal/scpi/binding_test.go
package scpi

import (
	"context"
	"errors"
	"testing"
)

func TestOpenTransportRejectsEmptyAddress(t *testing.T) {
	_, _, err := openTransport(context.Background(), Address{}, Options{}.withDefaults())
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("openTransport error = %v, want *ConfigError", err)
	}
}

func TestOpenTransportRejectsAmbiguousAddress(t *testing.T) {
	gpib, _ := NewGPIBNumber(5)
	addr := Address{GPIB: &gpib, SerialPort: "/dev/ttyUSB0"}

	_, _, err := openTransport(context.Background(), addr, Options{}.withDefaults())
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("openTransport error = %v, want *ConfigError", err)
	}
}

func TestOpenTransportGPIBRequiresGateway(t *testing.T) {
	gpib, _ := NewGPIBNumber(5)
	addr := Address{GPIB: &gpib}

	_, _, err := openTransport(context.Background(), addr, Options{}.withDefaults())
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("openTransport error = %v, want *ConfigError", err)
	}
}

func TestSimulatedOpenClearsDeviceBuffers(t *testing.T) {
	ch, backend, err := openTransport(context.Background(), Address{Host: "bench.lab"}, Options{Simulate: true}.withDefaults())
	if err != nil {
		t.Fatalf("openTransport returned error: %v", err)
	}
	if backend != BackendSim {
		t.Fatalf("backend = %s, want %s", backend, BackendSim)
	}

	sim := ch.(*SimChannel)
	cmds := sim.Commands()
	if len(cmds) != 1 || cmds[0] != "*CLS" {
		t.Fatalf("post-open commands = %v, want [*CLS]", cmds)
	}
}

// internal/config/config_test.go
package config

import (
	"testing"
	"time"
)

func TestInstrumentAddressVariants(t *testing.T) {
	tests := []struct {
		name string
		ic   InstrumentConfig
		want string
	}{
		{
			name: "gpib",
			ic:   InstrumentConfig{Name: "psg", GPIB: 19},
			want: "GPIB0::19::INSTR",
		},
		{
			name: "host",
			ic:   InstrumentConfig{Name: "smw", Host: "192.0.2.10"},
			want: "TCPIP::192.0.2.10::INSTR",
		},
		{
			name: "host with port",
			ic:   InstrumentConfig{Name: "smw", Host: "192.0.2.10", Port: 5025},
			want: "TCPIP::192.0.2.10::5025::SOCKET",
		},
		{
			name: "usb",
			ic:   InstrumentConfig{Name: "ngp", USBVendor: "0x0AAD", USBProduct: "0x0197", USBSerial: "100001"},
			want: "USB::0x0AAD::0x0197::100001",
		},
		{
			name: "serial",
			ic:   InstrumentConfig{Name: "dmm", SerialPort: "/dev/ttyUSB0", BaudRate: 115200},
			want: "ASRL::/dev/ttyUSB0::INSTR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := tt.ic.Address()
			if err != nil {
				t.Fatalf("Address: %v", err)
			}
			if got := addr.String(); got != tt.want {
				t.Fatalf("address = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInstrumentAddressRejectsAmbiguity(t *testing.T) {
	ic := InstrumentConfig{Name: "bad", GPIB: 19, Host: "192.0.2.10"}
	if _, err := ic.Address(); err == nil {
		t.Fatal("expected error for two addressing schemes")
	}

	empty := InstrumentConfig{Name: "none"}
	if _, err := empty.Address(); err == nil {
		t.Fatal("expected error for no addressing scheme")
	}
}

func TestInstrumentAddressRejectsInvalidGPIB(t *testing.T) {
	ic := InstrumentConfig{Name: "bad", GPIB: 42}
	if _, err := ic.Address(); err == nil {
		t.Fatal("expected error for out-of-range gpib number")
	}
}

func TestOptionsLayersBenchUnderInstrument(t *testing.T) {
	cfg := &Config{
		Bench: BenchConfig{
			Gateway:     "192.0.2.1:1234",
			AltGateway:  "192.0.2.2",
			Wireless:    true,
			Timeout:     3 * time.Second,
			MaxAttempts: 7,
		},
	}

	opts := cfg.Options(InstrumentConfig{Name: "smw", Host: "192.0.2.10", HiSLIP: true})
	if !opts.HiSLIP {
		t.Fatal("per-instrument hislip flag lost")
	}
	if opts.Gateway != "192.0.2.1:1234" || opts.AltGateway != "192.0.2.2" {
		t.Fatalf("gateways = %q, %q", opts.Gateway, opts.AltGateway)
	}
	if !opts.Wireless || opts.Timeout != 3*time.Second || opts.MaxAttempts != 7 {
		t.Fatalf("bench-wide options not carried: %+v", opts)
	}
	if opts.SimResponses != nil {
		t.Fatal("sim responses scripted outside simulate mode")
	}
}

func TestOptionsScriptsIdentityOnlyWhenSimulated(t *testing.T) {
	cfg := &Config{Bench: BenchConfig{Simulate: true}}
	ic := InstrumentConfig{
		Name:   "smw",
		Host:   "192.0.2.10",
		SimIDN: "Rohde&Schwarz,SMW200A,100001,4.70.026",
	}

	opts := cfg.Options(ic)
	if !opts.Simulate {
		t.Fatal("simulate flag not carried")
	}
	if got := opts.SimResponses["*IDN?"]; got != ic.SimIDN {
		t.Fatalf("scripted identity = %q", got)
	}

	cfg.Bench.Simulate = false
	if opts := cfg.Options(ic); opts.SimResponses != nil {
		t.Fatal("identity scripted on a hardware bench")
	}
}

// internal/scpi/address_test.go
package scpi

import (
	"errors"
	"testing"
)

func TestGPIBNumberAcceptsValidRange(t *testing.T) {
	for n := MinGPIB; n <= MaxGPIB; n++ {
		got, err := NewGPIBNumber(n)
		if err != nil {
			t.Fatalf("NewGPIBNumber(%d) returned error: %v", n, err)
		}
		if int(got) != n {
			t.Fatalf("NewGPIBNumber(%d) = %d", n, got)
		}
	}
}

func TestGPIBNumberRejectsOutOfRange(t *testing.T) {
	for _, n := range []int{-5, 0, 32, 100} {
		_, err := NewGPIBNumber(n)
		if err == nil {
			t.Fatalf("NewGPIBNumber(%d) succeeded, want configuration error", n)
		}
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("NewGPIBNumber(%d) error = %T, want *ConfigError", n, err)
		}
	}
}

func TestAddressValidateRequiresExactlyOneVariant(t *testing.T) {
	gpib, _ := NewGPIBNumber(7)

	valid := []Address{
		{GPIB: &gpib},
		{Host: "172.22.2.31"},
		{USB: &USBID{Vendor: "0x0957", Product: "0x1f01", Serial: "MY12345678"}},
		{SerialPort: "/dev/ttyUSB0", BaudRate: 115200},
	}
	for _, addr := range valid {
		if err := addr.Validate(); err != nil {
			t.Fatalf("Validate(%s) returned error: %v", addr, err)
		}
	}

	var cfgErr *ConfigError

	empty := Address{}
	if err := empty.Validate(); !errors.As(err, &cfgErr) {
		t.Fatalf("empty address error = %v, want *ConfigError", err)
	}

	ambiguous := Address{GPIB: &gpib, Host: "172.22.2.31"}
	if err := ambiguous.Validate(); !errors.As(err, &cfgErr) {
		t.Fatalf("ambiguous address error = %v, want *ConfigError", err)
	}

	tripled := Address{Host: "172.22.2.31", SerialPort: "COM4", USB: &USBID{}}
	if err := tripled.Validate(); !errors.As(err, &cfgErr) {
		t.Fatalf("triple address error = %v, want *ConfigError", err)
	}
}

func TestAddressString(t *testing.T) {
	gpib, _ := NewGPIBNumber(12)
	cases := []struct {
		addr Address
		want string
	}{
		{Address{GPIB: &gpib}, "GPIB0::12::INSTR"},
		{Address{Host: "psg.lab"}, "TCPIP::psg.lab::INSTR"},
		{Address{Host: "psg.lab", Port: 5024}, "TCPIP::psg.lab::5024::SOCKET"},
		{Address{SerialPort: "/dev/ttyACM0"}, "ASRL::/dev/ttyACM0::INSTR"},
	}
	for _, tc := range cases {
		if got := tc.addr.String(); got != tc.want {
			t.Fatalf("String() = %q, want %q", got, tc.want)
		}
	}
}

// internal/scpi/address.go
package scpi

import (
	"fmt"
	"time"
)

// GPIB address bounds. Primary addresses outside this range are rejected at
// construction rather than silently clamped.
const (
	MinGPIB = 1
	MaxGPIB = 31
)

// GPIBNumber is a primary GPIB bus address in [MinGPIB, MaxGPIB].
type GPIBNumber int

// NewGPIBNumber validates and wraps a GPIB bus address.
func NewGPIBNumber(n int) (GPIBNumber, error) {
	if n < MinGPIB || n > MaxGPIB {
		return 0, &ConfigError{
			Reason: fmt.Sprintf("invalid gpib number %d: value must be between %d and %d", n, MinGPIB, MaxGPIB),
		}
	}
	return GPIBNumber(n), nil
}

func (g GPIBNumber) String() string { return fmt.Sprintf("%d", int(g)) }

// USBID identifies an instrument on the USB bus by its vendor, product and
// serial number triple.
type USBID struct {
	Vendor  string
	Product string
	Serial  string
}

func (u USBID) String() string {
	return fmt.Sprintf("USB::%s::%s::%s", u.Vendor, u.Product, u.Serial)
}

// Address selects how an instrument is reached. Exactly one variant must be
// populated per connection attempt; zero or more than one is a
// configuration error.
type Address struct {
	GPIB       *GPIBNumber
	Host       string // network-attached instrument; port defaults per backend
	Port       int    // optional explicit port, overrides the backend default
	USB        *USBID
	SerialPort string
	BaudRate   int // serial only, optional
}

// Validate enforces the exactly-one-variant rule.
func (a Address) Validate() error {
	populated := 0
	if a.GPIB != nil {
		populated++
	}
	if a.Host != "" {
		populated++
	}
	if a.USB != nil {
		populated++
	}
	if a.SerialPort != "" {
		populated++
	}

	switch {
	case populated == 0:
		return &ConfigError{Reason: "no valid instrument address supplied"}
	case populated > 1:
		return &ConfigError{Reason: fmt.Sprintf("ambiguous instrument address %s: exactly one addressing scheme may be set", a)}
	}
	return nil
}

// String renders a resource-style description for logs and errors.
func (a Address) String() string {
	switch {
	case a.GPIB != nil:
		return fmt.Sprintf("GPIB0::%s::INSTR", a.GPIB)
	case a.Host != "" && a.Port != 0:
		return fmt.Sprintf("TCPIP::%s::%d::SOCKET", a.Host, a.Port)
	case a.Host != "":
		return fmt.Sprintf("TCPIP::%s::INSTR", a.Host)
	case a.USB != nil:
		return a.USB.String()
	case a.SerialPort != "":
		return fmt.Sprintf("ASRL::%s::INSTR", a.SerialPort)
	}
	return "INVALID::INSTR"
}

// Options tune how the transport is opened and how the session recovers.
type Options struct {
	// Simulate swaps every backend for the simulated channel.
	Simulate bool

	// Wireless routes GPIB traffic through the secondary LAN gateway.
	Wireless bool

	// HiSLIP drives the instrument through the vendor session layer, which
	// verifies instrument status after every command and does its own
	// recovery. Sessions opened this way make a single attempt per call.
	HiSLIP bool

	// Gateway and AltGateway are the GPIB-LAN bridge addresses, host[:port].
	Gateway    string
	AltGateway string

	// Timeout is the initial I/O timeout applied to the open channel.
	Timeout time.Duration

	// MaxAttempts bounds the reconnect-and-retry loop per call.
	MaxAttempts int

	// SimResponses scripts query responses for the simulated backend.
	SimResponses map[string]string
}

// Defaults mirrored from the bench configuration.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxAttempts = 10

	rawSocketPort = 5025
	hislipPort    = 4880
	gatewayPort   = 1234
)

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return o
}

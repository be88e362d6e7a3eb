// internal/scpi/channel.go
package scpi

import "time"

// Backend tags which transport technology produced an open channel. The tag
// is stored on the session at open time so later calls can special-case the
// vendor session layer without fragile capability probing.
type Backend string

const (
	BackendHiSLIP Backend = "HISLIP"
	BackendGPIB   Backend = "GPIB"
	BackendTCP    Backend = "TCP"
	BackendUSB    Backend = "USB"
	BackendSerial Backend = "SERIAL"
	BackendSim    Backend = "SIM"
)

// SupportsRead reports whether the backend can service a standalone read
// with no preceding write. Only the streaming-capable transports can.
func (b Backend) SupportsRead() bool {
	switch b {
	case BackendGPIB, BackendTCP, BackendUSB, BackendSim:
		return true
	}
	return false
}

// Channel is one open bidirectional byte channel to an instrument. Commands
// and responses are newline-terminated strings; every call may block up to
// the configured timeout.
type Channel interface {
	WriteString(s string) (int, error)
	ReadString() (string, error)
	SetTimeout(d time.Duration) error
	Timeout() time.Duration
	Close() error
}

// internal/scpi/serial.go
package scpi

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// serialChannel drives instruments attached over a serial line. Some of
// them misbehave when cleared right after open, so the binding never issues
// the post-open device clear on this backend.
type serialChannel struct {
	port    serial.Port
	mutex   sync.Mutex
	timeout time.Duration
}

// openSerial opens the port and applies the requested baud rate as part of
// open-time negotiation; a rate that cannot be applied fails the open.
func openSerial(addr Address, opts Options) (*serialChannel, error) {
	baud := addr.BaudRate
	if baud == 0 {
		baud = 9600
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(addr.SerialPort, mode)
	if err != nil {
		return nil, &ConnectError{Target: addr.String(), Cause: fmt.Errorf("failed to open serial port: %w", err)}
	}

	if err := port.SetReadTimeout(opts.Timeout); err != nil {
		port.Close()
		return nil, &ConnectError{Target: addr.String(), Cause: fmt.Errorf("failed to set read timeout: %w", err)}
	}

	return &serialChannel{port: port, timeout: opts.Timeout}, nil
}

func (c *serialChannel) WriteString(s string) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.port.Write([]byte(s))
}

// ReadString accumulates bytes until the response terminator. The port read
// returns zero bytes on timeout, which surfaces as a transient fault.
func (c *serialChannel) ReadString() (string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var builder strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := c.port.Read(buf)
		if err != nil {
			return "", fmt.Errorf("failed to read from serial port: %w", err)
		}
		if n == 0 {
			return "", fmt.Errorf("serial read after %s: %w", c.timeout, errTimeout)
		}
		builder.WriteByte(buf[0])
		if buf[0] == '\n' {
			return builder.String(), nil
		}
	}
}

func (c *serialChannel) SetTimeout(d time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.port.SetReadTimeout(d); err != nil {
		return err
	}
	c.timeout = d
	return nil
}

func (c *serialChannel) Timeout() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.timeout
}

func (c *serialChannel) Close() error {
	return c.port.Close()
}

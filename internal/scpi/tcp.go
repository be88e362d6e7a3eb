// internal/scpi/tcp.go
package scpi

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// tcpChannel frames SCPI over a raw socket, one newline-terminated exchange
// at a time. It also carries GPIB traffic once the LAN gateway has been
// configured by openGPIB.
type tcpChannel struct {
	conn    net.Conn
	reader  *bufio.Reader
	mutex   sync.Mutex
	timeout time.Duration
}

// openTCP dials the instrument's raw SCPI socket. Port 5025 is the
// well-known suffix unless the address overrides it.
func openTCP(ctx context.Context, addr Address, opts Options) (*tcpChannel, error) {
	port := addr.Port
	if port == 0 {
		port = rawSocketPort
	}
	return dialRawSocket(ctx, fmt.Sprintf("%s:%d", addr.Host, port), opts.Timeout)
}

func dialRawSocket(ctx context.Context, target string, timeout time.Duration) (*tcpChannel, error) {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}

	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, &ConnectError{Target: target, Cause: err}
	}

	return &tcpChannel{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: timeout,
	}, nil
}

func (c *tcpChannel) WriteString(s string) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.conn.Write([]byte(s))
}

func (c *tcpChannel) ReadString() (string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", err
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read from instrument socket: %w", err)
	}
	return line, nil
}

func (c *tcpChannel) SetTimeout(d time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.timeout = d
	return nil
}

func (c *tcpChannel) Timeout() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.timeout
}

func (c *tcpChannel) Close() error {
	return c.conn.Close()
}

// internal/scpi/hislip.go
package scpi

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// hislipChannel is the vendor session layer: SCPI over the instrument's
// HiSLIP port with per-command status verification, the way the R&S session
// middleware drives its instruments. A command that the instrument rejects
// surfaces as a StatusError on the write itself rather than as a garbled
// later read, so the session makes a single attempt per call and never runs
// the reconnect-and-retry loop on this backend.
type hislipChannel struct {
	raw            *tcpChannel
	mutex          sync.Mutex
	statusChecking bool
}

// openHiSLIP opens the vendor session. The session layer performs its own
// device clear on open, so the binding skips the post-open *CLS here.
func openHiSLIP(ctx context.Context, addr Address, opts Options) (*hislipChannel, error) {
	port := addr.Port
	if port == 0 {
		port = hislipPort
	}
	raw, err := dialRawSocket(ctx, fmt.Sprintf("%s:%d", addr.Host, port), opts.Timeout)
	if err != nil {
		return nil, err
	}

	ch := &hislipChannel{raw: raw, statusChecking: true}
	if _, err := raw.WriteString("*CLS\n"); err != nil {
		raw.Close()
		return nil, &ConnectError{Target: addr.String(), Cause: err}
	}
	return ch, nil
}

// WriteString forwards the command and, for non-query commands while status
// checking is enabled, drains the instrument error queue so a rejected
// command fails here instead of poisoning the next exchange.
func (c *hislipChannel) WriteString(s string) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	n, err := c.raw.WriteString(s)
	if err != nil {
		return n, err
	}

	cmd := strings.TrimRight(s, "\r\n")
	if !c.statusChecking || strings.HasSuffix(cmd, "?") {
		return n, nil
	}

	if _, err := c.raw.WriteString("SYST:ERR?\n"); err != nil {
		return n, err
	}
	status, err := c.raw.ReadString()
	if err != nil {
		return n, err
	}
	status = strings.TrimSpace(status)
	if !strings.HasPrefix(status, "0,") && status != "0" {
		return n, &StatusError{Cmd: cmd, Message: status}
	}
	return n, nil
}

func (c *hislipChannel) ReadString() (string, error) {
	return c.raw.ReadString()
}

func (c *hislipChannel) SetTimeout(d time.Duration) error { return c.raw.SetTimeout(d) }

func (c *hislipChannel) Timeout() time.Duration { return c.raw.Timeout() }

func (c *hislipChannel) Close() error { return c.raw.Close() }

// setStatusChecking toggles per-command status verification.
func (c *hislipChannel) setStatusChecking(on bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.statusChecking = on
}

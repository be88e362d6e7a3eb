// internal/scpi/sim.go
package scpi

import (
	"strings"
	"sync"
	"time"
)

// DefaultSimIdentification is what the simulated backend reports when the
// caller does not script its own *IDN? response.
const DefaultSimIdentification = "Simulated Instruments,SIM100,000000,1.0.0"

// SimChannel is the simulated backend: it accepts every command, answers
// queries from a scripted response table, and records the full command
// stream so tests and dry runs can audit what an adapter sent.
type SimChannel struct {
	mutex     sync.Mutex
	responses map[string]string
	commands  []string
	pending   string
	hasReply  bool
	timeout   time.Duration
	closed    bool
}

// NewSimChannel builds a simulated channel with scripted query responses.
func NewSimChannel(responses map[string]string, timeout time.Duration) *SimChannel {
	return &SimChannel{
		responses: responses,
		timeout:   timeout,
	}
}

func (c *SimChannel) WriteString(s string) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return 0, errTimeout
	}

	cmd := strings.TrimRight(s, "\r\n")
	c.commands = append(c.commands, cmd)

	if strings.HasSuffix(cmd, "?") {
		c.pending = c.lookup(cmd)
		c.hasReply = true
	}
	return len(s), nil
}

func (c *SimChannel) ReadString() (string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return "", errTimeout
	}
	if !c.hasReply {
		return "", errTimeout
	}
	reply := c.pending
	c.pending = ""
	c.hasReply = false
	return reply + "\n", nil
}

func (c *SimChannel) SetTimeout(d time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.timeout = d
	return nil
}

func (c *SimChannel) Timeout() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.timeout
}

func (c *SimChannel) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.closed = true
	return nil
}

// Commands returns a copy of every command written so far.
func (c *SimChannel) Commands() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	out := make([]string, len(c.commands))
	copy(out, c.commands)
	return out
}

func (c *SimChannel) lookup(query string) string {
	if reply, ok := c.responses[query]; ok {
		return reply
	}
	switch query {
	case "*IDN?":
		return DefaultSimIdentification
	case "*OPC?":
		return "1"
	case "SYST:ERR?":
		return `0,"No error"`
	}
	return "0"
}

// Simulated unwraps the simulated channel behind a session, if any. Used by
// adapter tests to audit the command stream.
func Simulated(s *Session) (*SimChannel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sim, ok := s.ch.(*SimChannel)
	return sim, ok
}

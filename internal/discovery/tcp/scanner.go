// internal/discovery/tcp/scanner.go
package tcp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"instrument-service/internal/discovery"
	"instrument-service/internal/scpi"
)

// Well-known LAN instrument ports.
const (
	rawSocketPort = 5025
	hislipPort    = 4880
)

// Scanner probes a fixed host list for LAN instruments. A host answering on
// the raw SCPI socket is identified in place; a host answering only on the
// HiSLIP port is reported unidentified, since identification there needs the
// full vendor session handshake.
type Scanner struct {
	logger *zap.Logger
	config *Config
}

// Config for the TCP scanner. The ports default to the well-known instrument
// ports and are overridable for test benches behind port forwards.
type Config struct {
	Hosts          []string      `json:"hosts"`
	ConnTimeout    time.Duration `json:"connection_timeout"`
	MaxConcurrent  int           `json:"max_concurrent"`
	IdentifyOnScan bool          `json:"identify_on_scan"`
	RawPort        int           `json:"raw_port"`
	HiSLIPPort     int           `json:"hislip_port"`
}

// NewScanner creates a new TCP scanner over the given host list.
func NewScanner(logger *zap.Logger, config *Config) *Scanner {
	if config == nil {
		config = &Config{}
	}
	if config.ConnTimeout <= 0 {
		config.ConnTimeout = 2 * time.Second
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 8
	}
	if config.RawPort == 0 {
		config.RawPort = rawSocketPort
	}
	if config.HiSLIPPort == 0 {
		config.HiSLIPPort = hislipPort
	}
	return &Scanner{
		logger: logger.With(zap.String("scanner", "tcp")),
		config: config,
	}
}

// Type returns the scanner's transport type.
func (s *Scanner) Type() string { return "tcp" }

// Available reports whether the scanner has anything to probe.
func (s *Scanner) Available() bool { return len(s.config.Hosts) > 0 }

// Scan probes every configured host concurrently.
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.Candidate, error) {
	s.logger.Info("Starting TCP probe", zap.Int("hosts", len(s.config.Hosts)))

	var (
		wg      sync.WaitGroup
		mutex   sync.Mutex
		results []*discovery.Candidate
	)
	sem := make(chan struct{}, s.config.MaxConcurrent)

	for _, host := range s.config.Hosts {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			defer func() { <-sem }()

			if candidate := s.probeHost(ctx, host); candidate != nil {
				mutex.Lock()
				results = append(results, candidate)
				mutex.Unlock()
			}
		}(host)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Address < results[j].Address })

	s.logger.Info("TCP probe completed", zap.Int("candidates", len(results)))
	return results, nil
}

func (s *Scanner) probeHost(ctx context.Context, host string) *discovery.Candidate {
	if candidate := s.probeRawSocket(ctx, host); candidate != nil {
		return candidate
	}
	return s.probeHiSLIP(ctx, host)
}

func (s *Scanner) probeRawSocket(ctx context.Context, host string) *discovery.Candidate {
	dialer := &net.Dialer{Timeout: s.config.ConnTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, s.config.RawPort))
	if err != nil {
		return nil
	}
	defer conn.Close()

	addr := scpi.Address{Host: host}
	candidate := &discovery.Candidate{
		Backend:    scpi.BackendTCP,
		Address:    addr.String(),
		Confidence: 0.7,
		Details: map[string]interface{}{
			"host": host,
			"port": s.config.RawPort,
		},
	}

	if s.config.IdentifyOnScan {
		if ident, err := s.identify(conn); err == nil {
			candidate.Identity = &ident
			candidate.Confidence = 0.95
		} else {
			s.logger.Debug("Raw socket open but identification failed",
				zap.String("host", host),
				zap.Error(err),
			)
		}
	}

	return candidate
}

func (s *Scanner) probeHiSLIP(ctx context.Context, host string) *discovery.Candidate {
	dialer := &net.Dialer{Timeout: s.config.ConnTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, s.config.HiSLIPPort))
	if err != nil {
		return nil
	}
	conn.Close()

	addr := scpi.Address{Host: host}
	return &discovery.Candidate{
		Backend:    scpi.BackendHiSLIP,
		Address:    addr.String(),
		Confidence: 0.6,
		Details: map[string]interface{}{
			"host": host,
			"port": s.config.HiSLIPPort,
		},
	}
}

func (s *Scanner) identify(conn net.Conn) (scpi.Identification, error) {
	deadline := time.Now().Add(s.config.ConnTimeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return scpi.Identification{}, err
	}

	if _, err := conn.Write([]byte("*IDN?\n")); err != nil {
		return scpi.Identification{}, err
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return scpi.Identification{}, err
	}
	return scpi.ParseIdentification(strings.TrimSpace(line))
}

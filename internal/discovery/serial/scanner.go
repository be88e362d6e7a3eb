// internal/discovery/serial/scanner.go
package serial

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"instrument-service/internal/discovery"
	"instrument-service/internal/scpi"
)

// Scanner enumerates serial ports that may carry an instrument. Ports are
// never opened: writing a probe to a port that belongs to a live session
// would corrupt its command stream, so candidates are reported by name only
// with low confidence.
type Scanner struct {
	logger *zap.Logger
	config *Config
}

// Config for the serial scanner.
type Config struct {
	PortPatterns []string `json:"port_patterns"`
}

// NewScanner creates a new serial port scanner.
func NewScanner(logger *zap.Logger, config *Config) *Scanner {
	if config == nil {
		config = &Config{PortPatterns: defaultPortPatterns()}
	}
	return &Scanner{
		logger: logger.With(zap.String("scanner", "serial")),
		config: config,
	}
}

// Type returns the scanner's transport type.
func (s *Scanner) Type() string { return "serial" }

// Available reports whether serial enumeration works on this platform.
func (s *Scanner) Available() bool { return true }

// Scan lists matching serial ports.
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.Candidate, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}

	var candidates []*discovery.Candidate
	for _, port := range ports {
		select {
		case <-ctx.Done():
			return candidates, ctx.Err()
		default:
		}

		if !s.matchesPattern(port) {
			continue
		}

		addr := scpi.Address{SerialPort: port}
		candidates = append(candidates, &discovery.Candidate{
			Backend:    scpi.BackendSerial,
			Address:    addr.String(),
			Confidence: 0.2,
			Details: map[string]interface{}{
				"port": port,
			},
		})
	}

	s.logger.Info("Serial scan completed",
		zap.Int("ports", len(ports)),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

func (s *Scanner) matchesPattern(port string) bool {
	for _, pattern := range s.config.PortPatterns {
		if ok, _ := filepath.Match(pattern, port); ok {
			return true
		}
		if strings.HasPrefix(port, strings.TrimSuffix(pattern, "*")) {
			return true
		}
	}
	return false
}

func defaultPortPatterns() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"COM*"}
	case "darwin":
		return []string{"/dev/tty.usbserial*", "/dev/tty.usbmodem*"}
	default:
		return []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/ttyS*"}
	}
}

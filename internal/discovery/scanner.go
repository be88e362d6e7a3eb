// internal/discovery/scanner.go
package discovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"instrument-service/internal/scpi"
)

// Scanner probes one transport for reachable instruments.
type Scanner interface {
	Scan(ctx context.Context) ([]*Candidate, error)
	Type() string
	Available() bool
}

// Candidate is an instrument found during a scan. Identity is populated only
// when the scanner could query the device without disturbing it; otherwise
// the candidate carries the address alone and the confidence reflects that.
type Candidate struct {
	Backend    scpi.Backend           `json:"backend"`
	Address    string                 `json:"address"`
	Identity   *scpi.Identification   `json:"identity,omitempty"`
	Adapter    string                 `json:"adapter,omitempty"`
	Confidence float64                `json:"confidence"` // 0.0-1.0
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Manager runs the registered scanners and merges their results.
type Manager struct {
	scanners map[string]Scanner
	order    []string
	logger   *zap.Logger
}

// NewManager creates an empty scanner manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		scanners: make(map[string]Scanner),
		logger:   logger,
	}
}

// Register adds a scanner under its transport type.
func (m *Manager) Register(scanner Scanner) {
	scannerType := scanner.Type()
	if _, exists := m.scanners[scannerType]; !exists {
		m.order = append(m.order, scannerType)
	}
	m.scanners[scannerType] = scanner
	m.logger.Info("Discovery scanner registered", zap.String("type", scannerType))
}

// ScanAll runs every available scanner. A failing scanner is logged and
// skipped so one dead subsystem does not hide the others' results.
func (m *Manager) ScanAll(ctx context.Context) ([]*Candidate, error) {
	var all []*Candidate

	for _, scannerType := range m.order {
		scanner := m.scanners[scannerType]
		if !scanner.Available() {
			m.logger.Debug("Scanner not available, skipping", zap.String("type", scannerType))
			continue
		}

		candidates, err := scanner.Scan(ctx)
		if err != nil {
			m.logger.Error("Scanner failed", zap.String("type", scannerType), zap.Error(err))
			continue
		}

		all = append(all, candidates...)
		m.logger.Info("Scanner completed",
			zap.String("type", scannerType),
			zap.Int("candidates", len(candidates)),
		)
	}

	return all, nil
}

// ScanByType runs one scanner by transport type.
func (m *Manager) ScanByType(ctx context.Context, scannerType string) ([]*Candidate, error) {
	scanner, exists := m.scanners[scannerType]
	if !exists {
		return nil, fmt.Errorf("scanner type not found: %s", scannerType)
	}
	if !scanner.Available() {
		return nil, fmt.Errorf("scanner not available: %s", scannerType)
	}
	return scanner.Scan(ctx)
}

// AvailableScanners returns the usable scanner types in registration order.
func (m *Manager) AvailableScanners() []string {
	var available []string
	for _, scannerType := range m.order {
		if m.scanners[scannerType].Available() {
			available = append(available, scannerType)
		}
	}
	return available
}

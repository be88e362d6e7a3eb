// internal/service/discovery_service.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"instrument-service/internal/config"
	"instrument-service/internal/discovery"
	serialscan "instrument-service/internal/discovery/serial"
	tcpscan "instrument-service/internal/discovery/tcp"
	usbscan "instrument-service/internal/discovery/usb"
	"instrument-service/internal/scpi"
	"instrument-service/internal/utils"
)

// DiscoveryService finds instruments the bench does not know about yet. It
// enumerates serial ports and USB devices and probes configured LAN hosts,
// then matches identified candidates against the adapter registry.
type DiscoveryService struct {
	manager  *discovery.Manager
	registry *scpi.Registry
	config   *config.Config
	logger   *utils.ServiceLogger
}

// NewDiscoveryService creates a discovery service with the standard scanner
// set.
func NewDiscoveryService(cfg *config.Config, registry *scpi.Registry, logger *zap.Logger) *DiscoveryService {
	ds := &DiscoveryService{
		manager:  discovery.NewManager(logger),
		registry: registry,
		config:   cfg,
		logger:   utils.NewServiceLogger(logger, "discovery-service"),
	}
	ds.initializeScanners(logger)
	return ds
}

func (ds *DiscoveryService) initializeScanners(logger *zap.Logger) {
	ds.manager.Register(serialscan.NewScanner(logger, nil))

	if usbScanner := usbscan.NewScanner(logger, nil); usbScanner.Available() {
		ds.manager.Register(usbScanner)
	}

	ds.manager.Register(tcpscan.NewScanner(logger, &tcpscan.Config{
		Hosts:          ds.lanHosts(),
		ConnTimeout:    ds.config.Bench.Timeout,
		IdentifyOnScan: true,
	}))

	ds.logger.Info("Discovery scanners initialized",
		zap.Strings("available", ds.manager.AvailableScanners()),
	)
}

// lanHosts collects every LAN address worth probing: the configured
// instruments' hosts plus the GPIB gateways.
func (ds *DiscoveryService) lanHosts() []string {
	seen := make(map[string]bool)
	var hosts []string

	add := func(host string) {
		if host == "" || seen[host] {
			return
		}
		seen[host] = true
		hosts = append(hosts, host)
	}

	for _, ic := range ds.config.Bench.Instruments {
		add(ic.Host)
	}
	add(stripPort(ds.config.Bench.Gateway))
	add(stripPort(ds.config.Bench.AltGateway))

	return hosts
}

// Scan runs the requested scanner set and annotates identified candidates
// with the adapter that would claim them.
func (ds *DiscoveryService) Scan(ctx context.Context, scanType string) ([]*discovery.Candidate, error) {
	ds.logger.Info("Starting instrument scan", zap.String("type", scanType))

	var candidates []*discovery.Candidate
	var err error

	switch scanType {
	case "", "all":
		candidates, err = ds.manager.ScanAll(ctx)
	case "serial", "usb", "tcp":
		candidates, err = ds.manager.ScanByType(ctx, scanType)
	default:
		return nil, fmt.Errorf("unsupported scan type: %s", scanType)
	}
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	for _, candidate := range candidates {
		if candidate.Identity == nil {
			continue
		}
		if _, adapter, ok := ds.registry.Lookup(candidate.Identity.Model); ok {
			candidate.Adapter = adapter
		}
	}

	ds.logger.Info("Instrument scan completed",
		zap.String("type", scanType),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

// Scanners lists the available scanner types.
func (ds *DiscoveryService) Scanners() []string {
	return ds.manager.AvailableScanners()
}

// stripPort drops an optional :port suffix from a gateway address.
func stripPort(gateway string) string {
	for i := len(gateway) - 1; i >= 0; i-- {
		if gateway[i] == ':' {
			return gateway[:i]
		}
	}
	return gateway
}

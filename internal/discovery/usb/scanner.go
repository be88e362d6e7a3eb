// internal/discovery/usb/scanner.go
package usb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"instrument-service/internal/discovery"
	"instrument-service/internal/scpi"
)

// USBTMC interface class triple per the USB Test & Measurement Class spec.
const (
	usbtmcClass    = 0xFE
	usbtmcSubclass = 0x03
)

// Scanner enumerates USB instruments. A device qualifies when it exposes a
// USBTMC interface or carries a known test-and-measurement vendor ID.
type Scanner struct {
	logger  *zap.Logger
	vendors *VendorDatabase
	config  *Config
}

// Config for the USB scanner.
type Config struct {
	ScanTimeout time.Duration `json:"scan_timeout"`
}

// NewScanner creates a new USB scanner.
func NewScanner(logger *zap.Logger, config *Config) *Scanner {
	if config == nil {
		config = &Config{ScanTimeout: 10 * time.Second}
	}
	return &Scanner{
		logger:  logger.With(zap.String("scanner", "usb")),
		vendors: NewVendorDatabase(),
		config:  config,
	}
}

// Type returns the scanner's transport type.
func (s *Scanner) Type() string { return "usb" }

// Available checks that the USB subsystem can be opened at all.
func (s *Scanner) Available() bool {
	testCtx := gousb.NewContext()
	defer testCtx.Close()

	_, err := testCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool { return false })
	return err == nil
}

// Scan enumerates qualifying USB devices and reads their string descriptors.
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.Candidate, error) {
	scanCtx, cancel := context.WithTimeout(ctx, s.config.ScanTimeout)
	defer cancel()

	usbCtx := gousb.NewContext()
	defer func() {
		if err := usbCtx.Close(); err != nil {
			s.logger.Warn("Failed to close USB context", zap.Error(err))
		}
	}()

	devices, err := usbCtx.OpenDevices(s.deviceFilter)
	if err != nil {
		// OpenDevices returns the devices that did open alongside the error;
		// a single unopenable device should not abort the scan.
		if len(devices) == 0 {
			return nil, fmt.Errorf("failed to enumerate usb devices: %w", err)
		}
		s.logger.Warn("Partial USB enumeration", zap.Error(err))
	}
	defer closeAll(devices, s.logger)

	var candidates []*discovery.Candidate
	for _, device := range devices {
		select {
		case <-scanCtx.Done():
			return candidates, scanCtx.Err()
		default:
		}

		if candidate := s.describe(device); candidate != nil {
			candidates = append(candidates, candidate)
		}
	}

	s.logger.Info("USB scan completed", zap.Int("candidates", len(candidates)))
	return candidates, nil
}

func (s *Scanner) deviceFilter(desc *gousb.DeviceDesc) bool {
	if s.vendors.IsKnownVendor(desc.Vendor) {
		return true
	}
	return hasUSBTMCInterface(desc)
}

// hasUSBTMCInterface walks the configuration tree looking for a USBTMC
// alternate setting.
func hasUSBTMCInterface(desc *gousb.DeviceDesc) bool {
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if uint8(alt.Class) == usbtmcClass && uint8(alt.SubClass) == usbtmcSubclass {
					return true
				}
			}
		}
	}
	return false
}

func (s *Scanner) describe(device *gousb.Device) *discovery.Candidate {
	desc := device.Desc
	if desc == nil {
		return nil
	}

	serial, err := device.SerialNumber()
	if err != nil {
		s.logger.Debug("Failed to read usb serial number",
			zap.String("vendor_id", fmt.Sprintf("0x%04X", uint16(desc.Vendor))),
			zap.Error(err),
		)
		serial = ""
	}

	usbID := scpi.USBID{
		Vendor:  fmt.Sprintf("0x%04X", uint16(desc.Vendor)),
		Product: fmt.Sprintf("0x%04X", uint16(desc.Product)),
		Serial:  serial,
	}
	addr := scpi.Address{USB: &usbID}

	confidence := 0.6
	if hasUSBTMCInterface(desc) {
		confidence = 0.9
	}

	candidate := &discovery.Candidate{
		Backend:    scpi.BackendUSB,
		Address:    addr.String(),
		Confidence: confidence,
		Details: map[string]interface{}{
			"vendor_id":  usbID.Vendor,
			"product_id": usbID.Product,
			"bus":        desc.Bus,
			"usbtmc":     hasUSBTMCInterface(desc),
		},
	}

	if manufacturer, err := device.Manufacturer(); err == nil && manufacturer != "" {
		candidate.Details["manufacturer"] = manufacturer
	} else if name, ok := s.vendors.VendorName(desc.Vendor); ok {
		candidate.Details["manufacturer"] = name
	}
	if product, err := device.Product(); err == nil && product != "" {
		candidate.Details["product"] = product
	}

	return candidate
}

func closeAll(devices []*gousb.Device, logger *zap.Logger) {
	for _, device := range devices {
		if device == nil {
			continue
		}
		if err := device.Close(); err != nil {
			logger.Warn("Failed to close USB device", zap.Error(err))
		}
	}
}

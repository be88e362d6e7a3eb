// internal/discovery/usb/database.go
package usb

import "github.com/google/gousb"

// VendorInfo describes a known test-and-measurement USB vendor.
type VendorInfo struct {
	Name string
}

// VendorDatabase maps USB vendor IDs to test-and-measurement manufacturers.
// Devices from these vendors are reported even when they do not expose a
// USBTMC interface.
type VendorDatabase struct {
	vendors map[gousb.ID]VendorInfo
}

// NewVendorDatabase builds the built-in vendor table.
func NewVendorDatabase() *VendorDatabase {
	return &VendorDatabase{
		vendors: map[gousb.ID]VendorInfo{
			0x0AAD: {Name: "Rohde & Schwarz"},
			0x0957: {Name: "Keysight Technologies"},
			0x0699: {Name: "Tektronix"},
			0x3923: {Name: "National Instruments"},
			0x1AB1: {Name: "Rigol Technologies"},
			0xF4EC: {Name: "Siglent Technologies"},
			0x0B21: {Name: "Yokogawa"},
		},
	}
}

// IsKnownVendor reports whether the vendor ID belongs to a known
// test-and-measurement manufacturer.
func (db *VendorDatabase) IsKnownVendor(vendor gousb.ID) bool {
	_, ok := db.vendors[vendor]
	return ok
}

// VendorName returns the manufacturer name for a known vendor ID.
func (db *VendorDatabase) VendorName(vendor gousb.ID) (string, bool) {
	info, ok := db.vendors[vendor]
	return info.Name, ok
}

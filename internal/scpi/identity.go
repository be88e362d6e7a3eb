// internal/scpi/identity.go
package scpi

import (
	"fmt"
	"strings"
)

// Identification is the manufacturer/model/serial/firmware tuple every
// instrument reports in response to the universal identification query.
// It is immutable once built and replaced wholesale on every successful
// identify.
type Identification struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	SerialNumber string `json:"serial_number"`
	Firmware     string `json:"firmware"`
}

func (id Identification) String() string {
	return fmt.Sprintf("%s %s (s/n %s, fw %s)", id.Manufacturer, id.Model, id.SerialNumber, id.Firmware)
}

// ParseIdentification splits a comma-separated identification response.
// Fewer than four fields indicates a protocol mismatch, never a transient
// fault, so the error is propagated rather than retried. The firmware field
// may carry the response terminator, which is stripped.
func ParseIdentification(raw string) (Identification, error) {
	fields := strings.Split(raw, ",")
	if len(fields) < 4 {
		return Identification{}, fmt.Errorf("malformed identification %q: expected 4 comma-separated fields, got %d", raw, len(fields))
	}

	return Identification{
		Manufacturer: fields[0],
		Model:        fields[1],
		SerialNumber: fields[2],
		Firmware:     strings.TrimRight(fields[3], "\r\n"),
	}, nil
}

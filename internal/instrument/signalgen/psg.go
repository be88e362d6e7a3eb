// internal/instrument/signalgen/psg.go
package signalgen

import (
	"fmt"

	"go.uber.org/zap"

	"instrument-service/internal/scpi"
)

// PSG drives the Keysight PSG series analog signal generators (E8257D,
// E8267D). Bench units sit on the GPIB bus behind the LAN gateway.
type PSG struct {
	*scpi.Session
}

// NewPSG builds a PSG adapter.
func NewPSG(addr scpi.Address, opts scpi.Options, logger *zap.Logger) (scpi.Instrument, error) {
	return &PSG{Session: scpi.NewSession(addr, opts, logger)}, nil
}

// SetFrequency programs the CW frequency in Hz.
func (g *PSG) SetFrequency(hz float64) error {
	return g.Write(fmt.Sprintf("FREQ %G", hz))
}

// SetLevel programs the output level in dBm.
func (g *PSG) SetLevel(dbm float64) error {
	return g.Write(fmt.Sprintf("POW %G DBM", dbm))
}

// Level reads back the programmed output level in dBm.
func (g *PSG) Level() (float64, error) {
	return queryFloat(g.Session, "POW?")
}

// SetRFOutput switches the RF output on or off.
func (g *PSG) SetRFOutput(on bool) error {
	return g.Write("OUTP " + onOff(on))
}
